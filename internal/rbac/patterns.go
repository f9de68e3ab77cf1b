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

import "github.com/bmatcuk/doublestar/v4"

// CatchAll matches every route. ADMIN's pattern set must include it.
const CatchAll = "/**"

// PatternSet is an ordered list of ant-style route patterns
// (`*` one path segment, `**` any number of segments, or an exact path).
type PatternSet []string

// Matches reports whether route matches any pattern in the set.
// Malformed patterns never match.
func (ps PatternSet) Matches(route string) bool {
	for _, p := range ps {
		if MatchRoute(p, route) {
			return true
		}
	}
	return false
}

// HasCatchAll reports whether the set contains the catch-all pattern.
func (ps PatternSet) HasCatchAll() bool {
	for _, p := range ps {
		if p == CatchAll {
			return true
		}
	}
	return false
}

// MatchRoute matches a single pattern against a route path.
func MatchRoute(pattern, route string) bool {
	ok, err := doublestar.Match(pattern, route)
	if err != nil {
		return false
	}
	return ok
}
