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

// Command cleanup enforces audit retention: it deletes audit events older
// than AUDIT_RETENTION_DAYS. Run it from a scheduler; the request path
// never purges.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/plantgate/plantgate/internal/audit"
	"github.com/plantgate/plantgate/internal/config"
	"github.com/plantgate/plantgate/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	cutoff := audit.RetentionCutoff(time.Now(), cfg.Audit.RetentionDays)
	fmt.Printf("Purging audit events older than %s (retention %d days)...\n",
		cutoff.Format(time.RFC3339), cfg.Audit.RetentionDays)

	removed, err := postgres.NewAuditSink(db).PurgeBefore(ctx, cutoff)
	if err != nil {
		fmt.Printf("Purge failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged %d audit events.\n", removed)
}
