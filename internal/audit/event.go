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

package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event categories
const (
	CategoryScreenAccess = "screen_access"
	CategoryDataAccess   = "data_access"
	CategoryPlantAccess  = "plant_access"
	CategorySecurity     = "security"
)

// Event severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityHigh    = "high"
)

// Event represents one recorded authorization decision. Retention of the
// written records belongs to the external store, not this engine.
type Event struct {
	ID          string
	PrincipalID string
	Resource    string
	Action      string
	Granted     bool
	Category    string
	Severity    string
	Context     map[string]any
	Timestamp   time.Time
}

func newEvent(category, principalID, resource, action string, granted bool, details map[string]any) Event {
	severity := SeverityInfo
	if !granted {
		severity = SeverityWarning
	}
	return Event{
		ID:          uuid.Must(uuid.NewV7()).String(),
		PrincipalID: principalID,
		Resource:    resource,
		Action:      action,
		Granted:     granted,
		Category:    category,
		Severity:    severity,
		Context:     details,
		Timestamp:   time.Now(),
	}
}

// ScreenAccessEvent records a route authorization attempt.
func ScreenAccessEvent(principalID, route string, granted bool, details map[string]any) Event {
	return newEvent(CategoryScreenAccess, principalID, route, "access", granted, details)
}

// DataAccessEvent records a data type capability check.
func DataAccessEvent(principalID, dataType, action string, granted bool, details map[string]any) Event {
	return newEvent(CategoryDataAccess, principalID, dataType, action, granted, details)
}

// PlantAccessEvent records a plant-scoped access attempt.
func PlantAccessEvent(principalID, resource, action string, granted bool, details map[string]any) Event {
	return newEvent(CategoryPlantAccess, principalID, resource, action, granted, details)
}

// ThrottleEvent records a subject crossing the failed-attempt threshold.
func ThrottleEvent(principalID string, attempts int) Event {
	e := newEvent(CategorySecurity, principalID, "authorization", "throttle", false, map[string]any{
		"failed_attempts": attempts,
	})
	e.Severity = SeverityHigh
	return e
}
