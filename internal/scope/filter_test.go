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

package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/rbac"
)

type row struct {
	id    string
	plant string
}

var dataset = []row{
	{"d1", "1101"},
	{"d2", "1102"},
	{"d3", "1102"},
	{"d4", "1103"},
	{"d5", "1104"},
}

func newPrincipal(t *testing.T, roles []string, plants []string) *principal.Context {
	t.Helper()
	h, err := rbac.NewHierarchy(true)
	require.NoError(t, err)
	b := principal.NewBuilder(h, true, rbac.RoleViewer, 0, "")
	p, err := b.FromClaims(principal.Claims{Subject: "u-1", Roles: roles, Plants: plants})
	require.NoError(t, err)
	return p
}

func TestForPrincipal_GlobalRolesUnrestricted(t *testing.T) {
	b := NewBuilder(true)

	for _, role := range []string{"ADMIN", "TECH"} {
		f := b.ForPrincipal(newPrincipal(t, []string{role}, nil), "document", "plant_code")
		assert.True(t, f.IsUnrestricted(), role)
		clause, args := f.SQL(0)
		assert.Empty(t, clause)
		assert.Empty(t, args)
	}
}

func TestForPrincipal_FilteringDisabledUnrestricted(t *testing.T) {
	b := NewBuilder(false)

	f := b.ForPrincipal(newPrincipal(t, []string{"PLANT"}, []string{"1102"}), "document", "plant_code")
	assert.True(t, f.IsUnrestricted())
	assert.True(t, f.Matches("9999"))
}

func TestPlantFilter_SQLRendering(t *testing.T) {
	b := NewBuilder(true)
	f := b.ForPrincipal(newPrincipal(t, []string{"PLANT"}, []string{"1102", "1103"}), "document", "plant_code")

	clause, args := f.SQL(0)
	assert.Equal(t, "plant_code = ANY($1)", clause)
	require.Len(t, args, 1)
	assert.Equal(t, []string{"1102", "1103"}, args[0])

	// Offset-aware numbering for composition with caller predicates.
	clause, _ = f.SQL(2)
	assert.Equal(t, "plant_code = ANY($3)", clause)
}

func TestPlantFilter_Apply(t *testing.T) {
	b := NewBuilder(true)
	f := b.ForPrincipal(newPrincipal(t, []string{"PLANT"}, []string{"1102"}), "document", "plant_code")

	where := []string{"doc_type = $1"}
	args := []any{"QUERY"}
	where, args = f.Apply(where, args)

	require.Len(t, where, 2)
	assert.Equal(t, "plant_code = ANY($2)", where[1])
	require.Len(t, args, 2)

	// Unrestricted filters compose to a no-op.
	where2, args2 := Unrestricted("document", "plant_code").Apply([]string{"doc_type = $1"}, []any{"QUERY"})
	assert.Len(t, where2, 1)
	assert.Len(t, args2, 1)
}

// sqlSelect mimics the database's evaluation of the rendered clause:
// a row passes when its plant column is a member of the bound array
// (field = ANY($n)), or when no clause was rendered at all.
func sqlSelect(f PlantFilter, rows []row) []row {
	clause, args := f.SQL(0)
	if clause == "" {
		return rows
	}
	entitled := args[0].([]string)
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		for _, p := range entitled {
			if r.plant == p {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// TestPurpose: Validates the filter-consistency invariant: the SQL predicate
// path and the in-memory path select identical result sets over the same
// unfiltered dataset, for every principal shape.
// Scope: Unit Test
// Expected: Both paths agree row for row.
func TestFilterConsistency_SQLAndMemoryPathsAgree(t *testing.T) {
	b := NewBuilder(true)

	principals := []*principal.Context{
		newPrincipal(t, []string{"ADMIN"}, nil),
		newPrincipal(t, []string{"TECH"}, []string{"1101"}),
		newPrincipal(t, []string{"PLANT"}, []string{"1102"}),
		newPrincipal(t, []string{"PLANT"}, []string{"1102", "1104"}),
		newPrincipal(t, []string{"JVC", "CQS"}, []string{"1101", "1103"}),
		newPrincipal(t, []string{"VIEWER"}, nil),
	}

	for _, p := range principals {
		f := b.ForPrincipal(p, "document", "plant_code")

		viaSQL := sqlSelect(f, dataset)
		viaMemory := FilterByPlantAccess(f, dataset, func(r row) string { return r.plant })

		assert.Equal(t, viaSQL, viaMemory, "principal %s plants=%v", p.PrimaryRole, p.PlantCodes)
	}
}

func TestFilterByPlantAccess(t *testing.T) {
	b := NewBuilder(true)
	f := b.ForPrincipal(newPrincipal(t, []string{"PLANT"}, []string{"1102"}), "document", "plant_code")

	got := FilterByPlantAccess(f, dataset, func(r row) string { return r.plant })
	assert.Equal(t, []row{{"d2", "1102"}, {"d3", "1102"}}, got)
}

func TestFilterByPlantAccess_EmptyEntitlementMatchesNothing(t *testing.T) {
	b := NewBuilder(true)
	f := b.ForPrincipal(newPrincipal(t, []string{"VIEWER"}, nil), "document", "plant_code")

	got := FilterByPlantAccess(f, dataset, func(r row) string { return r.plant })
	assert.Empty(t, got)

	clause, args := f.SQL(0)
	assert.NotEmpty(t, clause, "restricted filter must still render a clause")
	assert.Empty(t, args[0].([]string))
}

func TestFilterByMultiPlantAccess_SubsetRule(t *testing.T) {
	type report struct {
		id     string
		plants []string
	}
	reports := []report{
		{"r1", []string{"1102"}},
		{"r2", []string{"1102", "1103"}},
		{"r3", []string{"1102", "1104"}}, // 1104 unmet: excluded
		{"r4", nil},                      // no plants at all: excluded
	}

	b := NewBuilder(true)
	f := b.ForPrincipal(newPrincipal(t, []string{"PLANT"}, []string{"1102", "1103"}), "report", "plant_code")

	got := FilterByMultiPlantAccess(f, reports, func(r report) []string { return r.plants })
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].id)
	assert.Equal(t, "r2", got[1].id)
}
