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

package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates the degradation contract on a shared input table:
// for identical inputs the fallback decision is never more permissive than
// the authoritative engine's. Both implementations run against the same
// principals, routes, data types, and plant requests so they cannot
// silently diverge.
// Scope: Unit Test
// Expected: fallback grant implies engine grant, for every input.
func TestFallback_NeverMorePermissiveThanEngine(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	f := NewFallback()
	ctx := context.Background()

	principals := []struct {
		roles  []string
		plants []string
	}{
		{[]string{"ADMIN"}, nil},
		{[]string{"TECH"}, []string{"1101"}},
		{[]string{"JVC"}, []string{"1102"}},
		{[]string{"CQS"}, []string{"1102", "1103"}},
		{[]string{"PLANT"}, []string{"1102"}},
		{[]string{"PLANT", "CQS"}, []string{"1102", "1103"}},
		{[]string{"VIEWER"}, nil},
	}
	routes := []string{
		"/health",
		"/api/v1/documents/42",
		"/api/v1/queries/7",
		"/api/v1/questionnaires/7",
		"/api/v1/admin/config",
		"/unconfigured",
	}
	dataTypes := []string{
		DataTypeDocument, DataTypeQuery, DataTypeQuestionnaire,
		DataTypePlant, DataTypeUser, DataTypeAuditTrail, "unknown",
	}
	plantRequests := [][]string{
		{"1102"}, {"1103"}, {"9999"}, {"1102", "1103"}, {"1102", "1104"},
	}

	for _, tc := range principals {
		p := testPrincipal(t, tc.roles, tc.plants)

		for _, route := range routes {
			if f.HasScreenAccess(ctx, p, route) {
				assert.True(t, e.HasScreenAccess(ctx, p, route),
					"fallback granted screen %s for %v but engine denied", route, tc.roles)
			}
		}
		for _, dt := range dataTypes {
			if f.HasDataAccess(ctx, p, dt) {
				assert.True(t, e.HasDataAccess(ctx, p, dt),
					"fallback granted data %s for %v but engine denied", dt, tc.roles)
			}
			for _, plants := range plantRequests {
				if f.HasPlantDataAccess(ctx, p, dt, plants[0]) {
					assert.True(t, e.HasPlantDataAccess(ctx, p, dt, plants[0]),
						"fallback granted plant %s for %v but engine denied", plants[0], tc.roles)
				}
				if f.HasMultiPlantDataAccess(ctx, p, dt, plants) {
					assert.True(t, e.HasMultiPlantDataAccess(ctx, p, dt, plants),
						"fallback granted plants %v for %v but engine denied", plants, tc.roles)
				}
			}
			for _, action := range []string{"read", "update"} {
				req := Request{ResourceType: dt, ResourceID: "42", Action: action, PlantCode: "1103"}
				if fd := f.Decide(ctx, p, req); fd.Granted {
					ed := e.Decide(ctx, p, req)
					assert.True(t, ed.Granted,
						"fallback granted %+v for %v but engine denied (%s)", req, tc.roles, ed.Reason)
				}
			}
		}
	}
}

func TestFallback_AdminScreenAccessOnly(t *testing.T) {
	f := NewFallback()
	ctx := context.Background()

	admin := testPrincipal(t, []string{"ADMIN"}, nil)
	tech := testPrincipal(t, []string{"TECH"}, nil)

	assert.True(t, f.HasScreenAccess(ctx, admin, "/api/v1/documents"))
	// Conservative: TECH may reach this via configuration, but claims alone
	// cannot prove it.
	assert.False(t, f.HasScreenAccess(ctx, tech, "/api/v1/documents"))
	// Even bypass routes are denied without the configuration.
	assert.False(t, f.HasScreenAccess(ctx, tech, "/health"))
}

func TestFallback_GlobalPlantAccessOnly(t *testing.T) {
	f := NewFallback()
	ctx := context.Background()

	tech := testPrincipal(t, []string{"TECH"}, nil)
	plant := testPrincipal(t, []string{"PLANT"}, []string{"1102"})

	assert.True(t, f.HasPlantDataAccess(ctx, tech, DataTypeDocument, "1102"))
	// The entitlement would allow this, but the fallback does not trust
	// plant claims for scoping.
	assert.False(t, f.HasPlantDataAccess(ctx, plant, DataTypeDocument, "1102"))
}

func TestFallback_CapabilityTable(t *testing.T) {
	f := NewFallback()
	ctx := context.Background()

	viewer := testPrincipal(t, []string{"VIEWER"}, nil)
	admin := testPrincipal(t, []string{"ADMIN"}, nil)

	assert.True(t, f.HasDataAccess(ctx, viewer, DataTypeDocument))
	assert.False(t, f.HasDataAccess(ctx, viewer, DataTypeQuery))
	assert.True(t, f.HasDataAccess(ctx, admin, DataTypeUser))
	assert.False(t, f.HasDataAccess(ctx, admin, "unknown"))
}

func TestFallback_FaultMeansDeny(t *testing.T) {
	f := NewFallback()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		assert.False(t, f.HasScreenAccess(ctx, nil, "/x"))
		assert.False(t, f.HasDataAccess(ctx, nil, DataTypeDocument))
		assert.False(t, f.HasPlantDataAccess(ctx, nil, DataTypeDocument, "1102"))

		d := f.Decide(ctx, nil, Request{ResourceType: DataTypeDocument, Action: "read"})
		assert.False(t, d.Granted)
	})
}
