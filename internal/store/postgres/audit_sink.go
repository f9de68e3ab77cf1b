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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/plantgate/plantgate/internal/audit"
)

// AuditSink persists audit batches. Implements audit.Sink; the recorder
// owns batching and retry-free delivery, this sink only writes.
type AuditSink struct {
	db *DB
}

// NewAuditSink creates a new database-backed audit sink
func NewAuditSink(db *DB) *AuditSink {
	return &AuditSink{db: db}
}

// Write inserts one batch of events inside a single transaction.
func (s *AuditSink) Write(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO audit_events (id, principal_id, resource, action, granted, category, severity, context, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			e.ID, e.PrincipalID, e.Resource, e.Action, e.Granted,
			e.Category, e.Severity, e.Context, e.Timestamp,
		)
	}

	br := s.db.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert audit batch: %w", err)
		}
	}
	return nil
}

// PurgeBefore deletes audit events older than the cutoff. Retention
// enforcement runs from the cleanup command, not the request path.
func (s *AuditSink) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
