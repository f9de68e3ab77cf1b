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

package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchy_PrivilegeLevels(t *testing.T) {
	h, err := NewHierarchy(true)
	require.NoError(t, err)

	assert.Equal(t, 1, h.Level(RoleViewer))
	assert.Equal(t, 2, h.Level(RolePlant))
	assert.Equal(t, 3, h.Level(RoleJVC))
	assert.Equal(t, 3, h.Level(RoleCQS))
	assert.Equal(t, 4, h.Level(RoleTech))
	assert.Equal(t, 5, h.Level(RoleAdmin))
}

// TestPurpose: Validates the strict ordering property: for any pair with a
// strictly higher privilege level, HasHigherOrEqualPrivilege holds one way
// and fails the other.
// Scope: Unit Test
// Expected: A>B implies HasHigherOrEqualPrivilege(A,B) && !HasHigherOrEqualPrivilege(B,A).
func TestHierarchy_StrictOrderingProperty(t *testing.T) {
	h, err := NewHierarchy(true)
	require.NoError(t, err)

	for _, a := range AllRoles {
		for _, b := range AllRoles {
			got := h.HasHigherOrEqualPrivilege(a, b)
			assert.Equal(t, h.Level(a) >= h.Level(b), got, "%s vs %s", a, b)
			if h.Level(a) > h.Level(b) {
				assert.True(t, got)
				assert.False(t, h.HasHigherOrEqualPrivilege(b, a))
			}
		}
	}
}

func TestHierarchy_Implies(t *testing.T) {
	h, err := NewHierarchy(true)
	require.NoError(t, err)

	tests := []struct {
		a, b Role
		want bool
	}{
		{RoleAdmin, RoleTech, true},
		{RoleAdmin, RoleJVC, true},
		{RoleAdmin, RoleCQS, true},
		{RoleAdmin, RolePlant, true},
		{RoleTech, RolePlant, true},
		{RoleJVC, RolePlant, true},
		{RoleCQS, RolePlant, true},
		// JVC and CQS share a level but do not imply each other.
		{RoleJVC, RoleCQS, false},
		{RoleCQS, RoleJVC, false},
		// VIEWER is outside the chain: nothing implies it, it implies nothing.
		{RoleAdmin, RoleViewer, false},
		{RoleViewer, RolePlant, false},
		// Reflexive.
		{RoleViewer, RoleViewer, true},
		{RolePlant, RolePlant, true},
		// Never upward.
		{RolePlant, RoleTech, false},
		{RoleTech, RoleAdmin, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.Implies(tt.a, tt.b), "Implies(%s,%s)", tt.a, tt.b)
	}
}

func TestHierarchy_Disabled_CollapsesToIdentity(t *testing.T) {
	h, err := NewHierarchy(false)
	require.NoError(t, err)

	assert.True(t, h.Implies(RoleAdmin, RoleAdmin))
	assert.False(t, h.Implies(RoleAdmin, RoleTech))
	// Privilege comparison is still available when implication is off.
	assert.True(t, h.HasHigherOrEqualPrivilege(RoleAdmin, RoleTech))
}

func TestHierarchy_UnknownRoles(t *testing.T) {
	h, err := NewHierarchy(true)
	require.NoError(t, err)

	assert.False(t, h.Implies(Role("BOGUS"), RolePlant))
	assert.False(t, h.Implies(RoleAdmin, Role("BOGUS")))
	assert.False(t, h.HasHigherOrEqualPrivilege(Role("BOGUS"), RoleViewer))
}

func TestHierarchy_Highest(t *testing.T) {
	h, err := NewHierarchy(true)
	require.NoError(t, err)

	assert.Equal(t, RoleAdmin, h.Highest([]Role{RolePlant, RoleAdmin, RoleJVC}))
	assert.Equal(t, RoleJVC, h.Highest([]Role{RoleViewer, RoleJVC}))
	assert.Equal(t, RoleViewer, h.Highest(nil))
}
