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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/plantgate/plantgate/internal/observability/logger"
	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/rbac"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// PrincipalMiddleware decodes the Bearer token claims into a principal and
// stores it in the request context. Signature verification already happened
// at the gateway; this layer consumes claims, it does not authenticate.
// Requests without a usable identity pass through with no principal; the
// authorization guard decides whether that matters for the route.
func (h *Handler) PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := decodeClaims(raw)
		if err != nil {
			slog.WarnContext(r.Context(), "unparseable bearer token",
				logger.Component("transport"),
				logger.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}

		p, err := h.builder.FromClaims(claims)
		if err != nil {
			slog.WarnContext(r.Context(), "rejected principal claims",
				logger.Component("transport"),
				logger.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// AuthorizeMiddleware is the screen-access guard. Bypass routes skip the
// principal requirement entirely; everything else needs an identity, an
// unthrottled subject, and a pattern grant.
func (h *Handler) AuthorizeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.Security.Enabled ||
			rbac.PatternSet(h.cfg.Security.BypassPatterns).Matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		p := PrincipalFromContext(r.Context())
		if p == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if h.engine.IsThrottled(p.Subject) {
			respondError(w, http.StatusTooManyRequests, "too many failed authorization attempts")
			return
		}
		if !h.engine.HasScreenAccess(r.Context(), p, r.URL.Path) {
			respondDenial(w, r, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return auth[7:]
	}
	return ""
}

// decodeClaims extracts the claim set without verifying the signature.
func decodeClaims(raw string) (principal.Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		return principal.Claims{}, err
	}

	claims := principal.Claims{
		Roles:  stringSlice(mc["roles"]),
		Plants: stringSlice(mc["plants"]),
	}
	if sub, ok := mc["sub"].(string); ok {
		claims.Subject = sub
	}
	if iss, ok := mc["iss"].(string); ok {
		claims.Issuer = iss
	}
	if pp, ok := mc["primary_plant"].(string); ok {
		claims.PrimaryPlant = pp
	}
	if exp, ok := mc["exp"].(float64); ok {
		claims.ExpiresAt = int64(exp)
	}
	return claims, nil
}

// stringSlice converts a decoded JSON array claim to strings, dropping
// non-string members.
func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
