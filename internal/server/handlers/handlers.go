// Package handlers implements the serve surface's HTTP endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/canopyhq/canopy/internal/errors"
)

// HealthResponse is the /health response body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// VersionResponse is the /version response body.
type VersionResponse struct {
	Version string `json:"version"`
}

// Health returns the health probe handler.
//
// The server holds no connections and serves files from disk, so health is
// a liveness signal only.
func Health(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: version})
	}
}

// Version returns the version handler.
func Version(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version})
	}
}

// NotFound is the JSON 404 handler.
func NotFound(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteHTTPError(w, http.StatusNotFound, apperrors.CodeNotFound,
		"resource not found", map[string]any{"path": r.URL.Path})
}

// MethodNotAllowed is the JSON 405 handler.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteHTTPError(w, http.StatusMethodNotAllowed, apperrors.CodeMethodNotAllowed,
		"method not allowed", map[string]any{"method": r.Method})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
