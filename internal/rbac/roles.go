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

package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of role variants recognized by the engine.
// Claim strings cross the boundary exactly once, through ParseRole.
type Role string

const (
	RoleViewer Role = "VIEWER"
	RolePlant  Role = "PLANT"
	RoleJVC    Role = "JVC"
	RoleCQS    Role = "CQS"
	RoleTech   Role = "TECH"
	RoleAdmin  Role = "ADMIN"
)

// AllRoles lists every recognized role, lowest privilege first.
var AllRoles = []Role{RoleViewer, RolePlant, RoleJVC, RoleCQS, RoleTech, RoleAdmin}

// ErrUnknownRole is returned when a claim string maps to no recognized role.
var ErrUnknownRole = errors.New("unknown role")

// aliases translates the role spellings used by the identity layer into
// the canonical variants. Applied exactly once, at ParseRole.
var aliases = map[string]Role{
	"JVC_USER":      RoleJVC,
	"CQS_USER":      RoleCQS,
	"PLANT_USER":    RolePlant,
	"TECH_USER":     RoleTech,
	"ADMINISTRATOR": RoleAdmin,
	"READ_ONLY":     RoleViewer,
	"VIEWER_USER":   RoleViewer,
}

// ParseRole translates a raw claim string into a Role. It accepts the
// canonical names, the identity-layer aliases, and an optional "ROLE_"
// prefix. Unknown strings return ErrUnknownRole.
func ParseRole(raw string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "ROLE_")

	if alias, ok := aliases[name]; ok {
		return alias, nil
	}
	r := Role(name)
	if r.IsValid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// IsValid reports whether r is one of the recognized role variants.
func (r Role) IsValid() bool {
	switch r {
	case RoleViewer, RolePlant, RoleJVC, RoleCQS, RoleTech, RoleAdmin:
		return true
	}
	return false
}

// IsGlobal reports whether r grants plant-independent data access.
// ADMIN and TECH operate across every plant.
func (r Role) IsGlobal() bool {
	return r == RoleAdmin || r == RoleTech
}

func (r Role) String() string {
	return string(r)
}
