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

package principal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantgate/plantgate/internal/rbac"
)

func newBuilder(t *testing.T, strict bool) *Builder {
	t.Helper()
	h, err := rbac.NewHierarchy(true)
	require.NoError(t, err)
	return NewBuilder(h, strict, rbac.RoleViewer, 20, "")
}

// TestPurpose: Validates that identity-layer role aliases are translated to
// canonical variants exactly once, at the boundary.
// Scope: Unit Test
// Expected: "JVC_USER" becomes JVC; duplicates collapse; primary role is the
// highest-privilege role held.
func TestFromClaims_AliasTranslation(t *testing.T) {
	b := newBuilder(t, true)

	p, err := b.FromClaims(Claims{
		Subject: "u-1",
		Roles:   []string{"JVC_USER", "jvc", "PLANT_USER"},
		Plants:  []string{"1102"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []rbac.Role{rbac.RoleJVC, rbac.RolePlant}, p.Roles)
	assert.Equal(t, rbac.RoleJVC, p.PrimaryRole)
	assert.True(t, p.HasRole(rbac.RoleJVC))
	assert.False(t, p.HasRole(rbac.RoleAdmin))
}

func TestFromClaims_StrictRejectsUnknownRole(t *testing.T) {
	b := newBuilder(t, true)

	_, err := b.FromClaims(Claims{Subject: "u-1", Roles: []string{"ADMIN", "BOGUS"}})
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)
}

func TestFromClaims_LenientDropsUnknownRole(t *testing.T) {
	b := newBuilder(t, false)

	p, err := b.FromClaims(Claims{Subject: "u-1", Roles: []string{"ADMIN", "BOGUS"}})
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleAdmin}, p.Roles)
}

func TestFromClaims_LenientAllUnknownRejects(t *testing.T) {
	b := newBuilder(t, false)

	_, err := b.FromClaims(Claims{Subject: "u-1", Roles: []string{"BOGUS"}})
	assert.ErrorIs(t, err, ErrNoRoles)
}

func TestFromClaims_NoRoleClaimsGetsDefaultRole(t *testing.T) {
	b := newBuilder(t, true)

	p, err := b.FromClaims(Claims{Subject: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleViewer}, p.Roles)
	assert.Equal(t, rbac.RoleViewer, p.PrimaryRole)
}

func TestFromClaims_NoSubject(t *testing.T) {
	b := newBuilder(t, true)

	_, err := b.FromClaims(Claims{Roles: []string{"ADMIN"}})
	assert.ErrorIs(t, err, ErrNoSubject)
}

func TestFromClaims_PlantNormalization(t *testing.T) {
	b := newBuilder(t, true)

	p, err := b.FromClaims(Claims{
		Subject: "u-1",
		Roles:   []string{"PLANT"},
		Plants:  []string{"1103", "1102", "1103", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1102", "1103"}, p.PlantCodes)
	assert.Equal(t, "1102", p.PrimaryPlant)
	assert.True(t, p.EntitledTo("1103"))
	assert.False(t, p.EntitledTo("1104"))
}

func TestFromClaims_ExplicitPrimaryPlantWins(t *testing.T) {
	b := newBuilder(t, true)

	p, err := b.FromClaims(Claims{
		Subject:      "u-1",
		Roles:        []string{"PLANT"},
		Plants:       []string{"1102", "1103"},
		PrimaryPlant: "1103",
	})
	require.NoError(t, err)
	assert.Equal(t, "1103", p.PrimaryPlant)
}

func TestFromClaims_TooManyPlants(t *testing.T) {
	h, err := rbac.NewHierarchy(true)
	require.NoError(t, err)
	b := NewBuilder(h, true, rbac.RoleViewer, 2, "")

	_, err = b.FromClaims(Claims{
		Subject: "u-1",
		Roles:   []string{"PLANT"},
		Plants:  []string{"1102", "1103", "1104"},
	})
	assert.ErrorIs(t, err, ErrTooManyPlants)
}

func TestFromClaims_DefaultPlantApplied(t *testing.T) {
	h, err := rbac.NewHierarchy(true)
	require.NoError(t, err)
	b := NewBuilder(h, true, rbac.RoleViewer, 20, "1102")

	p, err := b.FromClaims(Claims{Subject: "u-1", Roles: []string{"PLANT"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1102"}, p.PlantCodes)
	assert.Equal(t, "1102", p.PrimaryPlant)
}

func TestContext_IsGlobal(t *testing.T) {
	b := newBuilder(t, true)

	tech, err := b.FromClaims(Claims{Subject: "u-1", Roles: []string{"TECH"}})
	require.NoError(t, err)
	assert.True(t, tech.IsGlobal())

	plant, err := b.FromClaims(Claims{Subject: "u-2", Roles: []string{"PLANT"}, Plants: []string{"1102"}})
	require.NoError(t, err)
	assert.False(t, plant.IsGlobal())
}
