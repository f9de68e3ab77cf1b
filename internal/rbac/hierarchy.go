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

import "fmt"

// Privilege levels. JVC and CQS share a level but do not imply each other;
// VIEWER sits outside the implication chain entirely.
var privilegeLevels = map[Role]int{
	RoleViewer: 1,
	RolePlant:  2,
	RoleJVC:    3,
	RoleCQS:    3,
	RoleTech:   4,
	RoleAdmin:  5,
}

// Implication edges: ADMIN→TECH, TECH→{JVC,CQS}, JVC→PLANT, CQS→PLANT.
var implicationEdges = map[Role][]Role{
	RoleAdmin: {RoleTech},
	RoleTech:  {RoleJVC, RoleCQS},
	RoleJVC:   {RolePlant},
	RoleCQS:   {RolePlant},
}

// Hierarchy resolves privilege ordering and role implication queries.
// It is built once at startup and immutable afterwards.
type Hierarchy struct {
	enabled bool
	levels  map[Role]int
	// implied[a] is the transitive closure of a's implication edges,
	// including a itself.
	implied map[Role]map[Role]bool
}

// NewHierarchy builds the hierarchy from the static ordering table and edge
// set, validating that the implication graph is acyclic and that privilege
// levels strictly increase along every edge. When disabled, Implies collapses
// to identity while privilege comparison stays available.
func NewHierarchy(enabled bool) (*Hierarchy, error) {
	h := &Hierarchy{
		enabled: enabled,
		levels:  privilegeLevels,
		implied: make(map[Role]map[Role]bool, len(AllRoles)),
	}

	for from, tos := range implicationEdges {
		for _, to := range tos {
			if h.levels[from] <= h.levels[to] {
				return nil, fmt.Errorf("role hierarchy edge %s->%s does not decrease privilege (%d -> %d)",
					from, to, h.levels[from], h.levels[to])
			}
		}
	}

	for _, r := range AllRoles {
		closure := map[Role]bool{r: true}
		if err := h.expand(r, closure, map[Role]bool{r: true}); err != nil {
			return nil, err
		}
		h.implied[r] = closure
	}

	return h, nil
}

func (h *Hierarchy) expand(r Role, closure, onPath map[Role]bool) error {
	for _, next := range implicationEdges[r] {
		if onPath[next] {
			return fmt.Errorf("role hierarchy contains a cycle through %s", next)
		}
		if closure[next] {
			continue
		}
		closure[next] = true
		onPath[next] = true
		if err := h.expand(next, closure, onPath); err != nil {
			return err
		}
		delete(onPath, next)
	}
	return nil
}

// Level returns the privilege level for a role, 0 for unknown roles.
func (h *Hierarchy) Level(r Role) int {
	return h.levels[r]
}

// Implies reports whether holding role a grants the capabilities of role b.
// Reflexive for every recognized role. With the hierarchy disabled only a==b
// implies.
func (h *Hierarchy) Implies(a, b Role) bool {
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	if a == b {
		return true
	}
	if !h.enabled {
		return false
	}
	return h.implied[a][b]
}

// HasHigherOrEqualPrivilege compares raw privilege levels. Unlike Implies it
// ignores the edge set: JVC and CQS are mutually higher-or-equal, and every
// role dominates VIEWER.
func (h *Hierarchy) HasHigherOrEqualPrivilege(a, b Role) bool {
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	return h.levels[a] >= h.levels[b]
}

// Highest returns the highest-privilege role from the given set, or
// RoleViewer for an empty set.
func (h *Hierarchy) Highest(roles []Role) Role {
	best := RoleViewer
	bestLevel := 0
	for _, r := range roles {
		if lvl := h.levels[r]; lvl > bestLevel {
			best, bestLevel = r, lvl
		}
	}
	return best
}
