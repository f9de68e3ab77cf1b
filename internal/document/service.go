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

package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plantgate/plantgate/internal/authz"
	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/scope"
)

// Service provides plant-scoped document access. Every operation runs the
// caller through the decision engine; listings are narrowed by the same
// plant filter the repository pushes into SQL.
type Service struct {
	repo    Repository
	engine  *authz.Engine
	filters *scope.Builder
}

// NewService creates a new document service
func NewService(repo Repository, engine *authz.Engine, filters *scope.Builder) *Service {
	return &Service{repo: repo, engine: engine, filters: filters}
}

// List returns the documents visible to the principal, scoped to their
// plant entitlement.
func (s *Service) List(ctx context.Context, p *principal.Context, docType, status string, limit, offset int) ([]*Document, error) {
	d := s.engine.Decide(ctx, p, authz.Request{
		ResourceType: authz.DataTypeDocument,
		Action:       "list",
	})
	if !d.Granted {
		return nil, authz.FromDecision(d)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, ListFilter{
		DocType: docType,
		Status:  status,
		Plant:   s.filters.ForPrincipal(p, authz.DataTypeDocument, "plant_code"),
		Limit:   limit,
		Offset:  offset,
	})
}

// Get returns a single document if the principal may see its plant.
func (s *Service) Get(ctx context.Context, p *principal.Context, id string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d := s.engine.Decide(ctx, p, authz.Request{
		ResourceType: authz.DataTypeDocument,
		ResourceID:   id,
		Action:       "read",
		PlantCode:    doc.PlantCode,
	})
	if !d.Granted {
		return nil, authz.FromDecision(d)
	}
	return doc, nil
}

// Create stores a new document after a write-capability and plant check.
func (s *Service) Create(ctx context.Context, p *principal.Context, doc *Document) (*Document, error) {
	d := s.engine.Decide(ctx, p, authz.Request{
		ResourceType: authz.DataTypeDocument,
		Action:       "create",
		PlantCode:    doc.PlantCode,
	})
	if !d.Granted {
		return nil, authz.FromDecision(d)
	}

	now := time.Now()
	doc.ID = uuid.Must(uuid.NewV7()).String()
	doc.CreatedBy = p.Subject
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = StatusDraft
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}
