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
	"context"
	"log/slog"

	"github.com/plantgate/plantgate/internal/observability/logger"
	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/rbac"
)

// Fallback computes substitute decisions from the principal's verified role
// claims alone: no plant entitlement lookups, no dynamic configuration. It
// exists for callers cut off from the authoritative engine.
//
// Contract: for identical inputs the fallback is never more permissive than
// the engine. It grants only what role claims alone can prove: the ADMIN
// catch-all, global-role plant access, and the static capability table.
// Everything that depends on bypass patterns, configured route patterns, or
// entitlement sets is denied. Wrong denials are acceptable; wrong grants
// are not. A fault inside the fallback itself means deny-all.
type Fallback struct {
	hierarchy *rbac.Hierarchy
}

// NewFallback creates the claims-only evaluator. The hierarchy it uses is
// the static ordering table; no configuration is consulted.
func NewFallback() *Fallback {
	// The static table cannot fail validation.
	h, err := rbac.NewHierarchy(true)
	if err != nil {
		panic(err)
	}
	return &Fallback{hierarchy: h}
}

// HasScreenAccess grants only the ADMIN catch-all. Bypass patterns and
// per-role route patterns live in configuration the fallback must not
// assume, so everything else is denied.
func (f *Fallback) HasScreenAccess(ctx context.Context, p *principal.Context, route string) bool {
	return f.denyOnFault(ctx, func() bool {
		return p.HasRole(rbac.RoleAdmin)
	})
}

// HasDataAccess applies the static capability table to the claimed roles.
func (f *Fallback) HasDataAccess(ctx context.Context, p *principal.Context, dataType string) bool {
	return f.denyOnFault(ctx, func() bool {
		required, ok := requiredLevel(dataType, "read")
		if !ok {
			return false
		}
		return maxLevel(f.hierarchy, p.Roles) >= required
	})
}

// HasPlantDataAccess grants only global roles. Entitlement membership would
// need the plant claims to be trusted for scoping decisions without the
// engine's validation, so non-global principals are denied.
func (f *Fallback) HasPlantDataAccess(ctx context.Context, p *principal.Context, dataType, plantCode string) bool {
	return f.denyOnFault(ctx, func() bool {
		return p.IsGlobal()
	})
}

// HasMultiPlantDataAccess mirrors HasPlantDataAccess: global roles only.
func (f *Fallback) HasMultiPlantDataAccess(ctx context.Context, p *principal.Context, dataType string, plantCodes []string) bool {
	return f.denyOnFault(ctx, func() bool {
		return p.IsGlobal()
	})
}

// Decide mirrors the engine's combined decision with the narrowed rules.
func (f *Fallback) Decide(ctx context.Context, p *principal.Context, req Request) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "fallback evaluator fault, denying",
				logger.Component("authz_fallback"),
				slog.Any("panic", r),
			)
			d = deny(ReasonInternalFault, nil)
		}
	}()

	required, known := requiredLevel(req.ResourceType, req.Action)
	if !known {
		return deny(ReasonUnknownDataType, map[string]any{"resource_type": req.ResourceType})
	}
	if maxLevel(f.hierarchy, p.Roles) < required {
		return deny(ReasonInsufficientRole, map[string]any{
			"resource_type":  req.ResourceType,
			"required_roles": rolesWithMinLevel(f.hierarchy, required),
			"actual_role":    p.PrimaryRole,
		})
	}
	if req.PlantCode != "" && !p.IsGlobal() {
		return deny(ReasonEngineUnreachable, map[string]any{
			"requested_plants": []string{req.PlantCode},
		})
	}
	return grant(ReasonCapabilityMet, map[string]any{
		"resource_type": req.ResourceType,
		"degraded":      true,
	})
}

func (f *Fallback) denyOnFault(ctx context.Context, fn func() bool) (granted bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "fallback evaluator fault, denying",
				logger.Component("authz_fallback"),
				slog.Any("panic", r),
			)
			granted = false
		}
	}()
	return fn()
}
