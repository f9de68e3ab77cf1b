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

// Package scope turns a principal's plant entitlement into a composable
// query predicate and an equivalent in-memory filter. Both paths share one
// membership rule so persisted and materialized data agree.
package scope

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/plantgate/plantgate/internal/principal"
)

// PlantFilter scopes plant-bound rows to a principal's entitlement.
// The zero value restricts to nothing; use Unrestricted for a pass-through.
type PlantFilter struct {
	entityType   string
	field        string
	plants       []string
	unrestricted bool
}

// Builder constructs plant filters under the loaded policy.
type Builder struct {
	filteringEnabled bool
}

// NewBuilder creates a filter builder. With filtering disabled every filter
// it produces is unrestricted.
func NewBuilder(plantFilteringEnabled bool) *Builder {
	return &Builder{filteringEnabled: plantFilteringEnabled}
}

// ForPrincipal returns the data filter for a principal over the given entity
// type and plant column. Global principals and disabled filtering yield an
// unrestricted filter; everyone else is scoped to their entitlement set.
func (b *Builder) ForPrincipal(p *principal.Context, entityType, plantField string) PlantFilter {
	if !b.filteringEnabled || p.IsGlobal() {
		return PlantFilter{entityType: entityType, field: plantField, unrestricted: true}
	}
	return PlantFilter{
		entityType: entityType,
		field:      plantField,
		plants:     p.PlantCodes,
	}
}

// Unrestricted returns a pass-through filter for the given column.
func Unrestricted(entityType, plantField string) PlantFilter {
	return PlantFilter{entityType: entityType, field: plantField, unrestricted: true}
}

// IsUnrestricted reports whether the filter passes every row.
func (f PlantFilter) IsUnrestricted() bool {
	return f.unrestricted
}

// Plants returns the entitlement set backing the filter, nil when
// unrestricted.
func (f PlantFilter) Plants() []string {
	if f.unrestricted {
		return nil
	}
	return f.plants
}

// Matches applies the filter's membership rule to a single plant code.
// This is the in-memory twin of the SQL clause: both must agree for every
// input.
func (f PlantFilter) Matches(plantCode string) bool {
	if f.unrestricted {
		return true
	}
	return lo.Contains(f.plants, plantCode)
}

// SQL renders the filter as a WHERE conjunct with one positional argument,
// numbered after argOffset existing arguments. Unrestricted filters render
// to an empty clause. A restricted filter over an empty entitlement renders
// a clause that matches no rows, which is exactly what Matches does.
func (f PlantFilter) SQL(argOffset int) (string, []any) {
	if f.unrestricted {
		return "", nil
	}
	clause := fmt.Sprintf("%s = ANY($%d)", f.field, argOffset+1)
	return clause, []any{f.plants}
}

// Apply composes the filter into an existing conjunct list via logical AND,
// renumbering against the arguments already collected.
func (f PlantFilter) Apply(where []string, args []any) ([]string, []any) {
	clause, clauseArgs := f.SQL(len(args))
	if clause == "" {
		return where, args
	}
	return append(where, clause), append(args, clauseArgs...)
}

// FilterByPlantAccess applies the filter to an already-materialized slice
// using a caller-supplied plant extractor.
func FilterByPlantAccess[T any](f PlantFilter, items []T, plantOf func(T) string) []T {
	if f.unrestricted {
		return items
	}
	return lo.Filter(items, func(item T, _ int) bool {
		return f.Matches(plantOf(item))
	})
}

// FilterByMultiPlantAccess keeps only items whose full plant set is covered
// by the filter (subset rule, not intersection).
func FilterByMultiPlantAccess[T any](f PlantFilter, items []T, plantsOf func(T) []string) []T {
	if f.unrestricted {
		return items
	}
	return lo.Filter(items, func(item T, _ int) bool {
		plants := plantsOf(item)
		if len(plants) == 0 {
			return false
		}
		return lo.EveryBy(plants, f.Matches)
	})
}
