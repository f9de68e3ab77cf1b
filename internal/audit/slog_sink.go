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
	"context"
	"log/slog"
)

// SlogSink writes audit events to the structured log. The default sink.
type SlogSink struct{}

// NewSlogSink creates a new slog-backed audit sink.
func NewSlogSink() *SlogSink {
	return &SlogSink{}
}

// Write logs each event in the batch.
func (s *SlogSink) Write(ctx context.Context, events []Event) error {
	for _, event := range events {
		attrs := []any{
			slog.String("audit_id", event.ID),
			slog.String("principal_id", event.PrincipalID),
			slog.String("resource", event.Resource),
			slog.String("action", event.Action),
			slog.Bool("granted", event.Granted),
			slog.String("category", event.Category),
			slog.String("severity", event.Severity),
			slog.Time("timestamp", event.Timestamp),
		}

		if len(event.Context) > 0 {
			group := []any{}
			for k, v := range event.Context {
				// Redact secrets
				if isSecret(k) {
					v = "[REDACTED]"
				}
				group = append(group, slog.Any(k, v))
			}
			attrs = append(attrs, slog.Group("context", group...))
		}

		slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
	}
	return nil
}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	secrets := []string{"password", "secret", "token", "key", "authorization"}
	for _, s := range secrets {
		if key == s {
			return true
		}
	}
	return false
}
