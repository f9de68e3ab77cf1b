// Copyright 2026 The PlantGate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package authz

import "github.com/plantgate/plantgate/internal/rbac"

// Data types known to the engine.
const (
	DataTypeDocument      = "document"
	DataTypeQuery         = "query"
	DataTypeQuestionnaire = "questionnaire"
	DataTypePlant         = "plant"
	DataTypeUser          = "user"
	DataTypeAuditTrail    = "audit_trail"
)

// capability is the minimum privilege level required per action class.
type capability struct {
	read  int
	write int
}

// dataCapabilities is the static capability table: data type to the minimum
// privilege level needed to read or write it. Both the engine and the
// fallback evaluator apply this same table; it never moves into
// configuration. Unknown data types are denied outright.
var dataCapabilities = map[string]capability{
	DataTypeDocument:      {read: 1, write: 2},
	DataTypeQuery:         {read: 2, write: 3},
	DataTypeQuestionnaire: {read: 2, write: 3},
	DataTypePlant:         {read: 1, write: 4},
	DataTypeUser:          {read: 5, write: 5},
	DataTypeAuditTrail:    {read: 4, write: 5},
}

// readActions lists the non-mutating action names. Anything not listed is
// treated as a write, keeping unknown actions on the conservative side.
var readActions = map[string]bool{
	"read": true,
	"list": true,
	"view": true,
}

// requiredLevel returns the privilege level needed for a data type and
// action, and whether the data type is known at all.
func requiredLevel(dataType, action string) (int, bool) {
	c, ok := dataCapabilities[dataType]
	if !ok {
		return 0, false
	}
	if readActions[action] {
		return c.read, true
	}
	return c.write, true
}

// maxLevel returns the highest privilege level across the given roles using
// the static ordering table. Claims-only: usable without a Hierarchy.
func maxLevel(h *rbac.Hierarchy, roles []rbac.Role) int {
	best := 0
	for _, r := range roles {
		if lvl := h.Level(r); lvl > best {
			best = lvl
		}
	}
	return best
}
