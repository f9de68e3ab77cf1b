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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantgate/plantgate/internal/authz"
	"github.com/plantgate/plantgate/internal/config"
	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/rbac"
	"github.com/plantgate/plantgate/internal/scope"
)

// memoryRepository evaluates ListFilter.Plant through Matches, mirroring
// what the SQL clause does against the database.
type memoryRepository struct {
	docs []*Document
}

func (m *memoryRepository) Create(_ context.Context, doc *Document) error {
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id string) (*Document, error) {
	for _, d := range m.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepository) List(_ context.Context, filter ListFilter) ([]*Document, error) {
	out := make([]*Document, 0, len(m.docs))
	for _, d := range m.docs {
		if filter.DocType != "" && d.DocType != filter.DocType {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if !filter.Plant.Matches(d.PlantCode) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memoryRepository) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	h, err := rbac.NewHierarchy(cfg.Security.RoleHierarchyEnabled)
	require.NoError(t, err)

	repo := &memoryRepository{docs: []*Document{
		{ID: "d1", PlantCode: "1102", DocType: "WORK_ORDER", Status: StatusReleased},
		{ID: "d2", PlantCode: "1103", DocType: "WORK_ORDER", Status: StatusReleased},
		{ID: "d3", PlantCode: "1104", DocType: "CHECKLIST", Status: StatusDraft},
	}}
	svc := NewService(repo,
		authz.NewEngine(cfg, h, nil),
		scope.NewBuilder(cfg.Security.PlantFilteringEnabled),
	)
	return svc, repo
}

func newTestPrincipal(t *testing.T, roles []string, plants []string) *principal.Context {
	t.Helper()
	h, err := rbac.NewHierarchy(true)
	require.NoError(t, err)
	b := principal.NewBuilder(h, true, rbac.RoleViewer, 0, "")
	p, err := b.FromClaims(principal.Claims{Subject: "subject-" + roles[0], Roles: roles, Plants: plants})
	require.NoError(t, err)
	return p
}

// TestPurpose: Validates that listings are narrowed to the caller's plant
// entitlement: a plant user sees only their plants' documents while a
// global role sees everything.
// Scope: Unit Test
// Expected: Entitled rows only for PLANT, all rows for TECH.
func TestList_ScopedToEntitlement(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	plantUser := newTestPrincipal(t, []string{"PLANT"}, []string{"1102"})
	docs, err := svc.List(ctx, plantUser, "", "", 50, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)

	tech := newTestPrincipal(t, []string{"TECH"}, nil)
	docs, err = svc.List(ctx, tech, "", "", 50, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

// TestPurpose: Validates that the attribute filters compose with the plant
// filter instead of replacing it.
// Scope: Unit Test
// Expected: Only entitled rows of the requested type.
func TestList_AttributeAndPlantFiltersCompose(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	plantUser := newTestPrincipal(t, []string{"PLANT"}, []string{"1103", "1104"})
	docs, err := svc.List(ctx, plantUser, "WORK_ORDER", "", 50, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d2", docs[0].ID)
}

// TestPurpose: Validates single-document fetch against the row's own plant
// code: entitled plant succeeds, foreign plant yields a typed plant denial
// carrying both plant sets.
// Scope: Unit Test
// Expected: d1 readable, d2 denied with PlantAccessDeniedError.
func TestGet_ChecksRowPlant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	plantUser := newTestPrincipal(t, []string{"PLANT"}, []string{"1102"})

	doc, err := svc.Get(ctx, plantUser, "d1")
	require.NoError(t, err)
	assert.Equal(t, "1102", doc.PlantCode)

	_, err = svc.Get(ctx, plantUser, "d2")
	require.Error(t, err)
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	var pade *authz.PlantAccessDeniedError
	require.True(t, errors.As(err, &pade))
	assert.Equal(t, []string{"1103"}, pade.RequestedPlants)
	assert.Equal(t, []string{"1102"}, pade.AssignedPlants)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	admin := newTestPrincipal(t, []string{"ADMIN"}, nil)

	_, err := svc.Get(context.Background(), admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestPurpose: Validates creation: a plant user may create inside their
// entitlement and is refused outside it; server-assigned fields are set.
// Scope: Unit Test
// Expected: ID/timestamps/creator populated; foreign plant denied.
func TestCreate_PlantScoped(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	plantUser := newTestPrincipal(t, []string{"PLANT"}, []string{"1102"})

	doc, err := svc.Create(ctx, plantUser, &Document{
		PlantCode: "1102", DocType: "WORK_ORDER", Title: "Line 3 changeover",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, StatusDraft, doc.Status)
	assert.Equal(t, plantUser.Subject, doc.CreatedBy)
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Len(t, repo.docs, 4)

	_, err = svc.Create(ctx, plantUser, &Document{PlantCode: "1103", DocType: "WORK_ORDER"})
	assert.ErrorIs(t, err, authz.ErrAccessDenied)
}

// TestPurpose: Validates that a role below the document write capability
// cannot create even inside an entitled plant.
// Scope: Unit Test
// Expected: InsufficientRoleError naming the actual role.
func TestCreate_RequiresWriteCapability(t *testing.T) {
	svc, _ := newTestService(t)
	viewer := newTestPrincipal(t, []string{"VIEWER"}, []string{"1102"})

	_, err := svc.Create(context.Background(), viewer, &Document{PlantCode: "1102", DocType: "WORK_ORDER"})
	require.Error(t, err)

	var ire *authz.InsufficientRoleError
	require.True(t, errors.As(err, &ire))
	assert.Equal(t, rbac.RoleViewer, ire.ActualRole)
}
