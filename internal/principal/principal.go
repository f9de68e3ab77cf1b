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

// Package principal builds the per-request identity view consumed by the
// authorization engine. Claims arrive already verified by the upstream
// identity layer; this package only decodes and normalizes them.
package principal

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/plantgate/plantgate/internal/rbac"
)

// Domain errors
var (
	ErrNoRoles       = errors.New("principal has no recognized roles")
	ErrNoSubject     = errors.New("principal has no subject")
	ErrTooManyPlants = errors.New("principal exceeds plant entitlement limit")
)

// Context is the per-request view of an authenticated identity.
// Constructed fresh for every request and never mutated afterwards.
type Context struct {
	Subject      string
	Roles        []rbac.Role
	PrimaryRole  rbac.Role
	PlantCodes   []string
	PrimaryPlant string

	// Claim metadata kept for diagnostics only.
	Issuer    string
	ExpiresAt time.Time
}

// HasRole reports whether the principal holds the given role directly.
func (c *Context) HasRole(r rbac.Role) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// IsGlobal reports whether any held role grants plant-independent access.
func (c *Context) IsGlobal() bool {
	for _, r := range c.Roles {
		if r.IsGlobal() {
			return true
		}
	}
	return false
}

// EntitledTo reports whether plantCode is in the principal's entitlement.
func (c *Context) EntitledTo(plantCode string) bool {
	for _, p := range c.PlantCodes {
		if p == plantCode {
			return true
		}
	}
	return false
}

// Claims is the subset of the identity token this engine consumes.
type Claims struct {
	Subject      string   `json:"sub"`
	Issuer       string   `json:"iss"`
	ExpiresAt    int64    `json:"exp"`
	Roles        []string `json:"roles"`
	Plants       []string `json:"plants"`
	PrimaryPlant string   `json:"primary_plant"`
}

// Builder turns verified claims into a Context using the loaded policy.
type Builder struct {
	hierarchy   *rbac.Hierarchy
	strictRoles bool
	defaultRole rbac.Role
	maxPlants   int
	defaultCode string
}

// NewBuilder creates a claims-to-context builder. strictRoles controls
// whether unknown role claims reject the principal or are dropped with a
// warning. maxPlants <= 0 disables the entitlement size limit.
func NewBuilder(hierarchy *rbac.Hierarchy, strictRoles bool, defaultRole rbac.Role, maxPlants int, defaultPlant string) *Builder {
	return &Builder{
		hierarchy:   hierarchy,
		strictRoles: strictRoles,
		defaultRole: defaultRole,
		maxPlants:   maxPlants,
		defaultCode: defaultPlant,
	}
}

// FromClaims builds an immutable Context from verified claims. Role alias
// translation happens here and nowhere else. A principal with no role claims
// at all receives the configured default role; a principal whose every role
// claim is unrecognized is rejected.
func (b *Builder) FromClaims(claims Claims) (*Context, error) {
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}

	var roles []rbac.Role
	for _, raw := range claims.Roles {
		r, err := rbac.ParseRole(raw)
		if err != nil {
			if b.strictRoles {
				return nil, fmt.Errorf("subject %s: %w", claims.Subject, err)
			}
			slog.Warn("dropping unrecognized role claim",
				slog.String("subject", claims.Subject),
				slog.String("role", raw),
			)
			continue
		}
		roles = append(roles, r)
	}
	if len(claims.Roles) == 0 {
		roles = []rbac.Role{b.defaultRole}
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("subject %s: %w", claims.Subject, ErrNoRoles)
	}
	roles = lo.Uniq(roles)

	plants := lo.Uniq(lo.Compact(claims.Plants))
	sort.Strings(plants)
	if b.maxPlants > 0 && len(plants) > b.maxPlants {
		return nil, fmt.Errorf("subject %s has %d plants, limit %d: %w",
			claims.Subject, len(plants), b.maxPlants, ErrTooManyPlants)
	}
	if len(plants) == 0 && b.defaultCode != "" {
		plants = []string{b.defaultCode}
	}

	primaryPlant := claims.PrimaryPlant
	if primaryPlant == "" && len(plants) > 0 {
		primaryPlant = plants[0]
	}

	var expires time.Time
	if claims.ExpiresAt > 0 {
		expires = time.Unix(claims.ExpiresAt, 0)
	}

	return &Context{
		Subject:      claims.Subject,
		Roles:        roles,
		PrimaryRole:  b.hierarchy.Highest(roles),
		PlantCodes:   plants,
		PrimaryPlant: primaryPlant,
		Issuer:       claims.Issuer,
		ExpiresAt:    expires,
	}, nil
}
