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

// Package authz is the authorization decision engine: screen access, data
// capability checks, plant-scoped access, combined decisions, and the
// conservative fallback evaluator. All operations are safe for concurrent
// use; the only mutable state is a set of expirable caches that are
// invalidated and recomputed, never mutated in place.
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/plantgate/plantgate/internal/audit"
	"github.com/plantgate/plantgate/internal/config"
	"github.com/plantgate/plantgate/internal/observability/logger"
	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/rbac"
)

// plantCodeRE is the shape of a valid plant code when plant code validation
// is enabled.
var plantCodeRE = regexp.MustCompile(`^[0-9]{4}$`)

// Recorder is the audit side channel. Satisfied by *audit.Recorder.
type Recorder interface {
	Record(ctx context.Context, event audit.Event)
}

// failureEntry tracks consecutive denials for one subject.
type failureEntry struct {
	count atomic.Int64
}

// Engine evaluates the access policy for principals. Constructed once at
// boot from the immutable configuration and shared across request handlers.
type Engine struct {
	cfg       *config.Config
	hierarchy *rbac.Hierarchy
	recorder  Recorder

	screenCache *expirable.LRU[string, bool]
	dataCache   *expirable.LRU[string, bool]
	plantCache  *expirable.LRU[string, Decision]
	failures    *expirable.LRU[string, *failureEntry]

	decisions  metric.Int64Counter
	cacheHits  metric.Int64Counter
	cacheMiss  metric.Int64Counter
}

// NewEngine creates the decision engine. recorder may be nil, which disables
// the audit side channel entirely.
func NewEngine(cfg *config.Config, hierarchy *rbac.Hierarchy, recorder Recorder) *Engine {
	e := &Engine{
		cfg:       cfg,
		hierarchy: hierarchy,
		recorder:  recorder,
		failures:  expirable.NewLRU[string, *failureEntry](4096, nil, cfg.Security.FailedAttemptWindow),
	}
	if cfg.Cache.Enabled {
		e.screenCache = expirable.NewLRU[string, bool](cfg.Cache.ScreenSize, nil, cfg.Cache.TTL)
		e.dataCache = expirable.NewLRU[string, bool](cfg.Cache.RoleSize, nil, cfg.Cache.TTL)
		e.plantCache = expirable.NewLRU[string, Decision](cfg.Cache.PlantSize, nil, cfg.Cache.TTL)
	}

	meter := otel.Meter("plantgate/authz")
	e.decisions, _ = meter.Int64Counter("authz.decisions",
		metric.WithDescription("Authorization decisions by kind and outcome"))
	e.cacheHits, _ = meter.Int64Counter("authz.cache.hits",
		metric.WithDescription("Decision cache hits"))
	e.cacheMiss, _ = meter.Int64Counter("authz.cache.misses",
		metric.WithDescription("Decision cache misses"))

	return e
}

// HasScreenAccess decides whether the principal may reach a route. Bypass
// patterns short-circuit before any role check. Otherwise access is the
// logical OR across the pattern sets of every role the principal holds.
func (e *Engine) HasScreenAccess(ctx context.Context, p *principal.Context, route string) bool {
	return e.failClosed(ctx, "screen_access", func() bool {
		if !e.cfg.Security.Enabled {
			return true
		}
		if rbac.PatternSet(e.cfg.Security.BypassPatterns).Matches(route) {
			// Bypass wins outright: no role check, no failure tracking.
			return true
		}

		key := principalKey(p) + "|screen|" + route
		granted, hit := e.cachedBool(e.screenCache, key, func() bool {
			for _, role := range p.Roles {
				if rbac.PatternSet(e.cfg.Security.URLPatterns[role.String()]).Matches(route) {
					return true
				}
			}
			return false
		})

		if !hit {
			e.record(ctx, audit.ScreenAccessEvent(p.Subject, route, granted, map[string]any{
				"roles": rolesOf(p),
			}))
		}
		e.count(ctx, "screen", granted)
		e.trackOutcome(ctx, p.Subject, granted)
		return granted
	})
}

// HasDataAccess is the role-only capability check for a data type. No plant
// scoping is applied here.
func (e *Engine) HasDataAccess(ctx context.Context, p *principal.Context, dataType string) bool {
	return e.failClosed(ctx, "data_access", func() bool {
		if !e.cfg.Security.Enabled {
			return true
		}

		key := principalKey(p) + "|data|" + dataType
		granted, hit := e.cachedBool(e.dataCache, key, func() bool {
			required, ok := requiredLevel(dataType, "read")
			if !ok {
				return false
			}
			return maxLevel(e.hierarchy, p.Roles) >= required
		})

		if !hit {
			e.record(ctx, audit.DataAccessEvent(p.Subject, dataType, "read", granted, map[string]any{
				"roles": rolesOf(p),
			}))
		}
		e.count(ctx, "data", granted)
		e.trackOutcome(ctx, p.Subject, granted)
		return granted
	})
}

// HasPlantDataAccess decides plant-scoped access for a single plant code.
// Global roles always pass; with plant filtering disabled every check is
// vacuously true.
func (e *Engine) HasPlantDataAccess(ctx context.Context, p *principal.Context, dataType, plantCode string) bool {
	return e.failClosed(ctx, "plant_access", func() bool {
		if !e.cfg.Security.Enabled {
			return true
		}
		d := e.plantDecision(p, []string{plantCode})
		e.record(ctx, audit.PlantAccessEvent(p.Subject, dataType, "read", d.Granted, d.Details))
		e.count(ctx, "plant", d.Granted)
		e.trackOutcome(ctx, p.Subject, d.Granted)
		return d.Granted
	})
}

// HasMultiPlantDataAccess decides access to a set of plants. The full
// requested set must be a subset of the entitlement; intersection is not
// enough.
func (e *Engine) HasMultiPlantDataAccess(ctx context.Context, p *principal.Context, dataType string, plantCodes []string) bool {
	return e.failClosed(ctx, "plant_access", func() bool {
		if !e.cfg.Security.Enabled {
			return true
		}
		d := e.plantDecision(p, plantCodes)
		e.record(ctx, audit.PlantAccessEvent(p.Subject, dataType, "read", d.Granted, d.Details))
		e.count(ctx, "plant", d.Granted)
		e.trackOutcome(ctx, p.Subject, d.Granted)
		return d.Granted
	})
}

// Decide combines the role capability check and, when a plant code is
// present, the plant entitlement rules into one typed decision. It fails
// closed: an internal fault yields a denial, never a grant.
func (e *Engine) Decide(ctx context.Context, p *principal.Context, req Request) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "decision engine fault, failing closed",
				logger.Component("authz"),
				slog.Any("panic", r),
				slog.String("resource_type", req.ResourceType),
			)
			d = deny(ReasonInternalFault, map[string]any{"resource_type": req.ResourceType})
		}
		e.count(ctx, "decision", d.Granted)
		if p != nil {
			e.trackOutcome(ctx, p.Subject, d.Granted)
			e.recordDecision(ctx, p, req, d)
		}
	}()

	if !e.cfg.Security.Enabled {
		return grant(ReasonSecurityDisabled, nil)
	}

	required, known := requiredLevel(req.ResourceType, req.Action)
	if !known {
		return deny(ReasonUnknownDataType, map[string]any{
			"resource_type": req.ResourceType,
			"actual_role":   p.PrimaryRole,
		})
	}
	if maxLevel(e.hierarchy, p.Roles) < required {
		return deny(ReasonInsufficientRole, map[string]any{
			"resource_type":  req.ResourceType,
			"action":         req.Action,
			"required_roles": rolesWithMinLevel(e.hierarchy, required),
			"actual_role":    p.PrimaryRole,
		})
	}

	if req.PlantCode != "" {
		if pd := e.plantDecision(p, []string{req.PlantCode}); !pd.Granted {
			// Copy before annotating: cached decisions share their details map.
			details := make(map[string]any, len(pd.Details)+2)
			for k, v := range pd.Details {
				details[k] = v
			}
			details["resource_type"] = req.ResourceType
			details["resource_id"] = req.ResourceID
			return deny(pd.Reason, details)
		}
	}

	return grant(ReasonCapabilityMet, map[string]any{
		"resource_type": req.ResourceType,
		"action":        req.Action,
	})
}

// plantDecision applies the plant entitlement rules to a requested set.
// The same rule backs single and multi plant checks: every requested code
// must sit inside the entitlement.
func (e *Engine) plantDecision(p *principal.Context, requested []string) Decision {
	details := map[string]any{
		"requested_plants": requested,
		"assigned_plants":  p.PlantCodes,
	}

	if !e.cfg.Security.PlantFilteringEnabled {
		return grant(ReasonFilteringDisabled, details)
	}
	if p.IsGlobal() {
		return grant(ReasonGlobalRole, details)
	}
	if len(requested) == 0 {
		return deny(ReasonMissingPlantArgument, details)
	}

	if e.cfg.Security.PlantCodeValidation {
		for _, code := range requested {
			if !plantCodeRE.MatchString(code) {
				return deny(ReasonInvalidPlantCode, details)
			}
		}
	}
	if e.cfg.Security.StrictRoleValidation && len(p.PlantCodes) == 0 {
		return deny(ReasonEmptyEntitlement, details)
	}

	key := principalKey(p) + "|plant|" + strings.Join(requested, ",")
	if e.plantCache != nil {
		if d, ok := e.plantCache.Get(key); ok {
			e.cacheHits.Add(context.Background(), 1)
			return d
		}
		e.cacheMiss.Add(context.Background(), 1)
	}

	var d Decision
	if lo.Every(p.PlantCodes, requested) {
		d = grant(ReasonPlantEntitled, details)
	} else if len(requested) > 1 {
		d = deny(ReasonNotSubset, details)
	} else {
		d = deny(ReasonPlantNotEntitled, details)
	}

	if e.plantCache != nil {
		e.plantCache.Add(key, d)
	}
	return d
}

// IsThrottled reports whether a subject has crossed the failed-attempt
// threshold inside the current window. The transport refuses further checks
// for throttled subjects until the window expires.
func (e *Engine) IsThrottled(subject string) bool {
	entry, ok := e.failures.Get(subject)
	return ok && int(entry.count.Load()) >= e.cfg.Security.MaxFailedAttempts
}

// RequireRole is the method-level guard for role requirements. Satisfied
// through the implication hierarchy: holding ADMIN satisfies a TECH
// requirement.
func (e *Engine) RequireRole(p *principal.Context, requireAll bool, required ...rbac.Role) error {
	if !e.cfg.Security.Enabled || !e.cfg.Security.MethodSecurityEnabled {
		return nil
	}
	satisfied := func(want rbac.Role) bool {
		for _, held := range p.Roles {
			if e.hierarchy.Implies(held, want) {
				return true
			}
		}
		return false
	}

	ok := !requireAll
	for _, want := range required {
		if requireAll {
			if !satisfied(want) {
				ok = false
				break
			}
			ok = true
		} else if satisfied(want) {
			ok = true
			break
		}
	}
	if ok {
		return nil
	}
	return NewInsufficientRoleError(required, requireAll, p.PrimaryRole)
}

// RequirePlantAccess is the method-level guard for plant-scoped operations.
func (e *Engine) RequirePlantAccess(ctx context.Context, p *principal.Context, dataType, plantCode string) error {
	if !e.cfg.Security.Enabled || !e.cfg.Security.MethodSecurityEnabled {
		return nil
	}
	if e.HasPlantDataAccess(ctx, p, dataType, plantCode) {
		return nil
	}
	return NewPlantAccessDeniedError([]string{plantCode}, p.PlantCodes)
}

// Summary is the capability digest a caller can pre-render UI from without
// per-action round trips.
type Summary struct {
	Subject               string      `json:"subject"`
	PrimaryRole           rbac.Role   `json:"primary_role"`
	Roles                 []rbac.Role `json:"roles"`
	AccessibleScreens     []string    `json:"accessible_screens"`
	PlantCodes            []string    `json:"plant_codes"`
	PrimaryPlant          string      `json:"primary_plant"`
	IsAdmin               bool        `json:"is_admin"`
	IsPlantUser           bool        `json:"is_plant_user"`
	SessionTimeoutSeconds int64       `json:"session_timeout_seconds"`
	MaxConcurrentSessions int         `json:"max_concurrent_sessions"`
}

// AccessSummary builds the capability digest for a principal.
func (e *Engine) AccessSummary(p *principal.Context) Summary {
	var screens []string
	for _, role := range p.Roles {
		screens = append(screens, e.cfg.Security.URLPatterns[role.String()]...)
	}
	screens = lo.Uniq(screens)
	sort.Strings(screens)

	primary := p.PrimaryRole.String()
	return Summary{
		Subject:               p.Subject,
		PrimaryRole:           p.PrimaryRole,
		Roles:                 p.Roles,
		AccessibleScreens:     screens,
		PlantCodes:            p.PlantCodes,
		PrimaryPlant:          p.PrimaryPlant,
		IsAdmin:               p.HasRole(rbac.RoleAdmin),
		IsPlantUser:           !p.IsGlobal() && len(p.PlantCodes) > 0,
		SessionTimeoutSeconds: int64(e.cfg.Security.SessionTimeouts[primary] / time.Second),
		MaxConcurrentSessions: e.cfg.Security.MaxConcurrentSessions[primary],
	}
}

// failClosed runs an access check and converts any internal fault into a
// denial.
func (e *Engine) failClosed(ctx context.Context, kind string, fn func() bool) (granted bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "access check fault, failing closed",
				logger.Component("authz"),
				slog.String("check", kind),
				slog.Any("panic", r),
			)
			granted = false
		}
	}()
	return fn()
}

// cachedBool serves a boolean outcome from the cache or computes and stores
// it. The second return reports a cache hit, which suppresses duplicate
// audit events for hot keys.
func (e *Engine) cachedBool(cache *expirable.LRU[string, bool], key string, compute func() bool) (bool, bool) {
	if cache != nil {
		if v, ok := cache.Get(key); ok {
			e.cacheHits.Add(context.Background(), 1)
			return v, true
		}
		e.cacheMiss.Add(context.Background(), 1)
	}
	v := compute()
	if cache != nil {
		cache.Add(key, v)
	}
	return v, false
}

func (e *Engine) record(ctx context.Context, event audit.Event) {
	if e.recorder != nil {
		e.recorder.Record(ctx, event)
	}
}

// recordDecision routes a combined decision to the right audit category.
func (e *Engine) recordDecision(ctx context.Context, p *principal.Context, req Request, d Decision) {
	action := req.Action
	if action == "" {
		action = "access"
	}
	if req.PlantCode != "" {
		e.record(ctx, audit.PlantAccessEvent(p.Subject, req.ResourceType, action, d.Granted, d.Details))
		return
	}
	e.record(ctx, audit.DataAccessEvent(p.Subject, req.ResourceType, action, d.Granted, d.Details))
}

func (e *Engine) count(ctx context.Context, kind string, granted bool) {
	e.decisions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.Bool("granted", granted),
		),
	)
}

// trackOutcome maintains the consecutive-denial counter per subject. A grant
// clears the window; crossing the threshold emits one high-severity event.
func (e *Engine) trackOutcome(ctx context.Context, subject string, granted bool) {
	if granted {
		e.failures.Remove(subject)
		return
	}
	entry, ok := e.failures.Get(subject)
	if !ok {
		entry = &failureEntry{}
		e.failures.Add(subject, entry)
	}
	n := int(entry.count.Add(1))
	if n == e.cfg.Security.MaxFailedAttempts {
		slog.WarnContext(ctx, "subject crossed failed-attempt threshold",
			logger.Component("authz"),
			slog.String("subject", subject),
			slog.Int("attempts", n),
		)
		e.record(ctx, audit.ThrottleEvent(subject, n))
	}
}

// principalKey is the cache key prefix identifying a principal's
// authorization-relevant claims.
func principalKey(p *principal.Context) string {
	return fmt.Sprintf("%s|%s|%s", p.Subject, rolesOf(p), strings.Join(p.PlantCodes, ","))
}

func rolesOf(p *principal.Context) string {
	names := make([]string, len(p.Roles))
	for i, r := range p.Roles {
		names[i] = r.String()
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// rolesWithMinLevel lists the roles that satisfy a privilege level, lowest
// first, for error payloads.
func rolesWithMinLevel(h *rbac.Hierarchy, level int) []rbac.Role {
	var out []rbac.Role
	for _, r := range rbac.AllRoles {
		if h.Level(r) >= level {
			out = append(out, r)
		}
	}
	return out
}
