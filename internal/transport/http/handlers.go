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
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/plantgate/plantgate/internal/authz"
	"github.com/plantgate/plantgate/internal/config"
	"github.com/plantgate/plantgate/internal/document"
	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/rbac"
)

// Handler carries the wired services for the HTTP surface.
type Handler struct {
	cfg       *config.Config
	engine    *authz.Engine
	documents *document.Service
	builder   *principal.Builder
	metrics   http.Handler
}

// NewHandler creates a new HTTP handler. metrics may be nil, which disables
// the scrape endpoint.
func NewHandler(
	cfg *config.Config,
	engine *authz.Engine,
	documents *document.Service,
	builder *principal.Builder,
	metrics http.Handler,
) *Handler {
	return &Handler{
		cfg:       cfg,
		engine:    engine,
		documents: documents,
		builder:   builder,
		metrics:   metrics,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(h.PrincipalMiddleware)
	r.Use(h.AuthorizeMiddleware)

	r.Get("/health", h.HealthCheck)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/access", func(r chi.Router) {
			r.Get("/summary", h.AccessSummary)
			r.Post("/check", h.AccessCheck)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Get("/{id}", h.GetDocument)
		})

		r.Get("/admin/config", h.AdminConfig)
	})

	return r
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AccessSummary returns the caller's capability digest so clients can
// pre-render navigation without per-action round trips.
func (h *Handler) AccessSummary(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.AccessSummary(p))
}

// accessCheckRequest is the on-demand decision probe payload.
type accessCheckRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Action       string `json:"action"`
	PlantCode    string `json:"plant_code"`
}

// AccessCheck evaluates one combined decision for the caller. The decision
// is returned as data, not as an HTTP error: a denial here is a successful
// probe.
func (h *Handler) AccessCheck(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req accessCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResourceType == "" || req.Action == "" {
		respondError(w, http.StatusBadRequest, "resource_type and action are required")
		return
	}

	d := h.engine.Decide(r.Context(), p, authz.Request{
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Action:       req.Action,
		PlantCode:    req.PlantCode,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"granted": d.Granted,
		"reason":  d.Reason,
	})
}

// ListDocuments returns the caller's plant-scoped document listing.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	docs, err := h.documents.List(r.Context(), p, q.Get("doc_type"), q.Get("status"), limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// GetDocument returns a single document
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	doc, err := h.documents.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// createDocumentRequest is the document creation payload.
type createDocumentRequest struct {
	PlantCode string `json:"plant_code"`
	DocType   string `json:"doc_type"`
	Title     string `json:"title"`
	Status    string `json:"status"`
}

// CreateDocument stores a new document for the caller's plant.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlantCode == "" || req.DocType == "" {
		respondError(w, http.StatusBadRequest, "plant_code and doc_type are required")
		return
	}

	doc, err := h.documents.Create(r.Context(), p, &document.Document{
		PlantCode: req.PlantCode,
		DocType:   req.DocType,
		Title:     req.Title,
		Status:    req.Status,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

// AdminConfig serves the operator-readable policy summary. Restricted to
// ADMIN beyond the screen guard.
func (h *Handler) AdminConfig(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := h.engine.RequireRole(p, false, rbac.RoleAdmin); err != nil {
		respondDenial(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.cfg.Summary()))
}
