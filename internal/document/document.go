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

// Package document holds the plant-scoped manufacturing work documents the
// authorization engine protects. It exists to exercise the filter path end
// to end; the wider document lifecycle lives in other systems.
package document

import (
	"context"
	"errors"
	"time"

	"github.com/plantgate/plantgate/internal/scope"
)

// Domain errors
var ErrNotFound = errors.New("document not found")

// Document statuses
const (
	StatusDraft    = "DRAFT"
	StatusReleased = "RELEASED"
	StatusArchived = "ARCHIVED"
)

// Document is a manufacturing work document bound to a plant.
type Document struct {
	ID        string    `json:"id"`
	PlantCode string    `json:"plant_code"`
	DocType   string    `json:"doc_type"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows a document listing. Plant carries the entitlement
// predicate and is always applied by the repository.
type ListFilter struct {
	DocType string
	Status  string
	Plant   scope.PlantFilter
	Limit   int
	Offset  int
}

// Repository defines the interface for document persistence
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, filter ListFilter) ([]*Document, error)
}
