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

package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	cutoff := RetentionCutoff(now, 365)
	assert.Equal(t, time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC), cutoff)

	// An event written just inside the window survives, one just outside
	// does not.
	inside := cutoff.Add(time.Second)
	outside := cutoff.Add(-time.Second)
	assert.False(t, inside.Before(cutoff))
	assert.True(t, outside.Before(cutoff))
}

func TestRetentionCutoff_MinimumWindow(t *testing.T) {
	now := time.Now()
	cutoff := RetentionCutoff(now, 1)
	assert.True(t, cutoff.Before(now))
	assert.Equal(t, now.AddDate(0, 0, -1), cutoff)
}
