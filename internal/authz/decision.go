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

// Decision reasons. A denial always carries a non-empty reason.
const (
	ReasonSecurityDisabled     = "security_disabled"
	ReasonBypassPattern        = "bypass_pattern"
	ReasonRouteMatched         = "route_pattern_matched"
	ReasonRouteNotMatched      = "no_role_grants_route"
	ReasonCapabilityMet        = "role_capability_met"
	ReasonInsufficientRole     = "insufficient_role"
	ReasonUnknownDataType      = "unknown_data_type"
	ReasonGlobalRole           = "global_role"
	ReasonFilteringDisabled    = "plant_filtering_disabled"
	ReasonPlantEntitled        = "plant_in_entitlement"
	ReasonPlantNotEntitled     = "plant_not_in_entitlement"
	ReasonInvalidPlantCode     = "invalid_plant_code"
	ReasonEmptyEntitlement     = "no_plant_entitlement"
	ReasonNotSubset            = "requested_plants_not_subset"
	ReasonInternalFault        = "internal_fault"
	ReasonEngineUnreachable    = "engine_unreachable_fallback"
	ReasonSubjectThrottled     = "subject_throttled"
	ReasonMissingPlantArgument = "missing_plant_code"
)

// Decision is the typed outcome of a combined authorization check. A pure
// value: audit events and error payloads are built from it, it is never
// persisted by the engine.
type Decision struct {
	Granted bool
	Reason  string
	Details map[string]any
}

// Request names the resource and action a decision is asked for. PlantCode
// is optional; when set, the plant entitlement rules apply on top of the
// role capability check.
type Request struct {
	ResourceType string
	ResourceID   string
	Action       string
	PlantCode    string
}

func grant(reason string, details map[string]any) Decision {
	return Decision{Granted: true, Reason: reason, Details: details}
}

func deny(reason string, details map[string]any) Decision {
	return Decision{Granted: false, Reason: reason, Details: details}
}
