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

package http

import (
	"context"

	"github.com/plantgate/plantgate/internal/principal"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores the request principal in the context.
func WithPrincipal(ctx context.Context, p *principal.Context) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the request principal, nil when the request
// carried no usable identity.
func PrincipalFromContext(ctx context.Context) *principal.Context {
	if p, ok := ctx.Value(principalKey).(*principal.Context); ok {
		return p
	}
	return nil
}
