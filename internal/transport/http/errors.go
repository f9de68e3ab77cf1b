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
	"errors"
	"net/http"
	"time"

	"github.com/plantgate/plantgate/internal/authz"
	"github.com/plantgate/plantgate/internal/document"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// denialResponse is the structured 403 payload. Remediation lists only the
// requester's own roles and plants, never other principals' data or the
// full policy matrix.
type denialResponse struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	UserMessage string   `json:"user_message"`
	Timestamp   string   `json:"timestamp"`
	Path        string   `json:"path"`
	Remediation []string `json:"remediation,omitempty"`
}

// respondDenial renders a typed access denial as a 403 payload.
func respondDenial(w http.ResponseWriter, r *http.Request, err error) {
	var ae *authz.AccessError
	if !errors.As(err, &ae) {
		ae = &authz.AccessError{
			Code:        authz.CodeAccessDenied,
			Message:     "access denied",
			UserMessage: "You are not authorized to perform this operation.",
		}
	}
	respondJSON(w, http.StatusForbidden, denialResponse{
		Error:       ae.Code,
		Message:     ae.Message,
		UserMessage: ae.UserMessage,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Path:        r.URL.Path,
		Remediation: ae.Remediation,
	})
}

// respondServiceError maps a service-layer error to the right status code.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrAccessDenied):
		respondDenial(w, r, err)
	case errors.Is(err, document.ErrNotFound):
		respondError(w, http.StatusNotFound, "document not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
