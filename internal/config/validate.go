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

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jellydator/validation"

	"github.com/plantgate/plantgate/internal/rbac"
)

// minSessionTimeout is the shortest session timeout the policy considers
// sane. Shorter timeouts are allowed but flagged.
const minSessionTimeout = 300 * time.Second

// ValidationResult separates fatal policy violations from advisory warnings.
// Any fatal entry must abort startup before traffic is served.
type ValidationResult struct {
	Fatal    []string
	Warnings []string
}

func (r *ValidationResult) fatalf(format string, args ...any) {
	r.Fatal = append(r.Fatal, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err aggregates fatal entries into a single error, nil when clean.
func (r *ValidationResult) Err() error {
	if len(r.Fatal) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Fatal))
	for _, f := range r.Fatal {
		errs = append(errs, errors.New(f))
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

// LogWarnings emits every warning through slog.
func (r *ValidationResult) LogWarnings() {
	for _, w := range r.Warnings {
		slog.Warn("configuration warning", slog.String("detail", w))
	}
}

// Validate checks the loaded policy. Fatal violations abort startup; warnings
// describe likely misconfiguration that the process can still run with.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.validateSecurity(result)
	c.validateAudit(result)
	c.validateCache(result)

	return result
}

func (c *Config) validateSecurity(result *ValidationResult) {
	if _, err := rbac.ParseRole(c.Security.DefaultRole); err != nil {
		result.fatalf("SECURITY_DEFAULT_ROLE %q is not a recognized role", c.Security.DefaultRole)
	}

	if err := validation.Validate(c.Security.MaxFailedAttempts,
		validation.Min(1).Error("must be at least 1"),
	); err != nil {
		result.fatalf("SECURITY_MAX_FAILED_ATTEMPTS: %v", err)
	}
	if c.Security.FailedAttemptWindow <= 0 {
		result.fatalf("SECURITY_FAILED_ATTEMPT_WINDOW_SECONDS must be positive")
	}

	// Unknown role keys are tolerated so a policy can be staged ahead of a
	// role rollout, but they are almost always typos.
	for role := range c.Security.SessionTimeouts {
		if _, err := rbac.ParseRole(role); err != nil {
			result.warnf("session timeout configured for unknown role %q", role)
		}
	}
	for role, timeout := range c.Security.SessionTimeouts {
		if timeout < minSessionTimeout {
			result.warnf("session timeout for role %q is %s, below the recommended minimum %s",
				role, timeout, minSessionTimeout)
		}
	}
	for role := range c.Security.MaxConcurrentSessions {
		if _, err := rbac.ParseRole(role); err != nil {
			result.warnf("max concurrent sessions configured for unknown role %q", role)
		}
	}
	for role := range c.Security.URLPatterns {
		if _, err := rbac.ParseRole(role); err != nil {
			result.warnf("URL patterns configured for unknown role %q", role)
		}
	}

	if patterns, ok := c.Security.URLPatterns[string(rbac.RoleAdmin)]; ok {
		if !rbac.PatternSet(patterns).HasCatchAll() {
			result.warnf("ADMIN URL pattern set lacks the %q catch-all", rbac.CatchAll)
		}
	} else {
		result.warnf("no URL patterns configured for ADMIN")
	}

	if len(c.Security.BypassPatterns) == 0 {
		result.warnf("bypass pattern list is empty; health and static routes will require authorization")
	}
}

func (c *Config) validateAudit(result *ValidationResult) {
	if err := validation.Validate(c.Audit.RetentionDays,
		validation.Min(1).Error("must be at least 1"),
		validation.Max(3650).Error("must be at most 3650"),
	); err != nil {
		result.fatalf("AUDIT_RETENTION_DAYS: %v", err)
	}
	if err := validation.Validate(c.Audit.BatchSize,
		validation.Min(1).Error("must be at least 1"),
	); err != nil {
		result.fatalf("AUDIT_BATCH_SIZE: %v", err)
	}
	if err := validation.Validate(c.Audit.QueueSize,
		validation.Min(1).Error("must be at least 1"),
	); err != nil {
		result.fatalf("AUDIT_QUEUE_SIZE: %v", err)
	}
	if c.Audit.SuccessSampleRate < 1 {
		result.fatalf("AUDIT_SUCCESS_SAMPLE_EVERY must be at least 1")
	}
	if c.Audit.FlushInterval <= 0 || c.Audit.FlushTimeout <= 0 {
		result.fatalf("audit flush interval and timeout must be positive")
	}
	switch c.Audit.Sink {
	case "slog", "postgres":
	default:
		result.fatalf("AUDIT_SINK %q is not supported (want slog or postgres)", c.Audit.Sink)
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	sizes := map[string]int{
		"CACHE_ROLE_SIZE":   c.Cache.RoleSize,
		"CACHE_PLANT_SIZE":  c.Cache.PlantSize,
		"CACHE_SCREEN_SIZE": c.Cache.ScreenSize,
	}
	for key, size := range sizes {
		if err := validation.Validate(size,
			validation.Min(1).Error("must be positive"),
		); err != nil {
			result.fatalf("%s: %v", key, err)
		}
	}
	if c.Cache.TTL <= 0 {
		result.fatalf("CACHE_TTL_SECONDS must be positive")
	}
	if !c.Cache.Enabled {
		result.warnf("decision caching is disabled; every check recomputes from policy")
	}
}
