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
	"fmt"
	"sort"
	"strings"
)

// Summary renders a human-readable view of the loaded policy for operator
// diagnostics. It lists toggles and per-role settings but never credentials.
func (c *Config) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "security: enabled=%t plant_filtering=%t method_security=%t strict_roles=%t plant_code_validation=%t hierarchy=%t\n",
		c.Security.Enabled,
		c.Security.PlantFilteringEnabled,
		c.Security.MethodSecurityEnabled,
		c.Security.StrictRoleValidation,
		c.Security.PlantCodeValidation,
		c.Security.RoleHierarchyEnabled,
	)
	fmt.Fprintf(&b, "default_role: %s\n", c.Security.DefaultRole)
	fmt.Fprintf(&b, "failed_attempts: max=%d window=%s\n",
		c.Security.MaxFailedAttempts, c.Security.FailedAttemptWindow)
	fmt.Fprintf(&b, "bypass_patterns: %s\n", strings.Join(c.Security.BypassPatterns, ", "))

	fmt.Fprintf(&b, "url_patterns:\n")
	for _, role := range sortedKeys(c.Security.URLPatterns) {
		fmt.Fprintf(&b, "  %s: %s\n", role, strings.Join(c.Security.URLPatterns[role], ", "))
	}

	fmt.Fprintf(&b, "session_timeouts:\n")
	for _, role := range sortedKeys(c.Security.SessionTimeouts) {
		fmt.Fprintf(&b, "  %s: %s (max_sessions=%d)\n",
			role, c.Security.SessionTimeouts[role], c.Security.MaxConcurrentSessions[role])
	}

	fmt.Fprintf(&b, "audit: enabled=%t log_success=%t log_failed=%t screen=%t data=%t plant=%t sample_every=%d sink=%s\n",
		c.Audit.Enabled, c.Audit.LogSuccess, c.Audit.LogFailed,
		c.Audit.ScreenAccess, c.Audit.DataAccess, c.Audit.PlantAccess,
		c.Audit.SuccessSampleRate, c.Audit.Sink,
	)
	fmt.Fprintf(&b, "audit_pipeline: batch=%d queue=%d flush_interval=%s flush_timeout=%s retention_days=%d\n",
		c.Audit.BatchSize, c.Audit.QueueSize, c.Audit.FlushInterval, c.Audit.FlushTimeout, c.Audit.RetentionDays)

	fmt.Fprintf(&b, "plants: max_per_user=%d default=%q\n", c.Plant.MaxPerUser, c.Plant.DefaultCode)
	fmt.Fprintf(&b, "cache: enabled=%t ttl=%s sizes=[role=%d plant=%d screen=%d]\n",
		c.Cache.Enabled, c.Cache.TTL, c.Cache.RoleSize, c.Cache.PlantSize, c.Cache.ScreenSize)

	return b.String()
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
