// Package handler contains HTTP handlers for the MoodGate service.
//
// This file holds the small JSON request/response helpers shared by the
// API handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/moodmate/moodgate/internal/domain"
)

// maxRequestBody caps JSON request bodies. The largest legitimate payload
// is an analysis request with a 1000-character note.
const maxRequestBody = 65536

// respondJSON writes v as the JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON parses the request body into dst. The body is capped at
// maxRequestBody; oversized or malformed bodies come back as EINVALID.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Errorf(domain.EINVALID, "", "Request body must be valid JSON")
	}
	return nil
}
