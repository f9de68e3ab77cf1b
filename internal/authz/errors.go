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

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plantgate/plantgate/internal/rbac"
)

// ErrAccessDenied is the sentinel every typed denial unwraps to.
var ErrAccessDenied = errors.New("access denied")

// Machine error codes carried to the calling boundary.
const (
	CodeAccessDenied      = "access_denied"
	CodeInsufficientRole  = "insufficient_role"
	CodePlantAccessDenied = "plant_access_denied"
)

// AccessError is the base typed denial. Inside the engine denials stay
// Decision values; these errors exist for the request-handling boundary,
// where callers need structured payloads.
type AccessError struct {
	Code        string
	Message     string // technical, for logs
	UserMessage string // safe to show to the requester
	Details     map[string]any
	Remediation []string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AccessError) Unwrap() error {
	return ErrAccessDenied
}

// InsufficientRoleError signals that the principal's roles do not satisfy a
// role requirement.
type InsufficientRoleError struct {
	AccessError
	RequiredRoles []rbac.Role
	RequireAll    bool
	ActualRole    rbac.Role
}

// Unwrap exposes the embedded base so errors.As reaches *AccessError and
// errors.Is still reaches the sentinel through it.
func (e *InsufficientRoleError) Unwrap() error {
	return &e.AccessError
}

// NewInsufficientRoleError builds the denial for an unmet role requirement.
func NewInsufficientRoleError(required []rbac.Role, requireAll bool, actual rbac.Role) *InsufficientRoleError {
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = r.String()
	}
	mode := "any of"
	if requireAll {
		mode = "all of"
	}
	return &InsufficientRoleError{
		AccessError: AccessError{
			Code:        CodeInsufficientRole,
			Message:     fmt.Sprintf("role %s does not satisfy %s [%s]", actual, mode, strings.Join(names, ", ")),
			UserMessage: "You do not have the role required for this operation.",
			Details: map[string]any{
				"required_roles": names,
				"require_all":    requireAll,
				"actual_role":    actual.String(),
			},
			Remediation: []string{
				fmt.Sprintf("this operation requires %s: %s", mode, strings.Join(names, ", ")),
				fmt.Sprintf("your current role is: %s", actual),
			},
		},
		RequiredRoles: required,
		RequireAll:    requireAll,
		ActualRole:    actual,
	}
}

// PlantAccessDeniedError signals a request for plant data outside the
// principal's entitlement. Remediation lists only the requester's own
// accessible plants, never anyone else's.
type PlantAccessDeniedError struct {
	AccessError
	RequestedPlants []string
	AssignedPlants  []string
}

func (e *PlantAccessDeniedError) Unwrap() error {
	return &e.AccessError
}

// NewPlantAccessDeniedError builds the denial for an unmet plant entitlement.
func NewPlantAccessDeniedError(requested, assigned []string) *PlantAccessDeniedError {
	assignedHint := "you have no assigned plants"
	if len(assigned) > 0 {
		assignedHint = "your accessible plants are: " + strings.Join(assigned, ", ")
	}
	return &PlantAccessDeniedError{
		AccessError: AccessError{
			Code:        CodePlantAccessDenied,
			Message:     fmt.Sprintf("plants %v outside entitlement %v", requested, assigned),
			UserMessage: "You do not have access to data for the requested plant.",
			Details: map[string]any{
				"requested_plants": requested,
				"assigned_plants":  assigned,
			},
			Remediation: []string{assignedHint},
		},
		RequestedPlants: requested,
		AssignedPlants:  assigned,
	}
}

// FromDecision converts a denied Decision into the matching typed error.
// Returns nil for granted decisions.
func FromDecision(d Decision) error {
	if d.Granted {
		return nil
	}
	switch d.Reason {
	case ReasonInsufficientRole, ReasonUnknownDataType:
		required, _ := d.Details["required_roles"].([]rbac.Role)
		actual, _ := d.Details["actual_role"].(rbac.Role)
		return NewInsufficientRoleError(required, false, actual)
	case ReasonPlantNotEntitled, ReasonNotSubset, ReasonEmptyEntitlement, ReasonInvalidPlantCode:
		requested, _ := d.Details["requested_plants"].([]string)
		assigned, _ := d.Details["assigned_plants"].([]string)
		return NewPlantAccessDeniedError(requested, assigned)
	default:
		return &AccessError{
			Code:        CodeAccessDenied,
			Message:     d.Reason,
			UserMessage: "You are not authorized to perform this operation.",
			Details:     d.Details,
		}
	}
}
