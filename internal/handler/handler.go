// Package handler provides HTTP request handlers for the probe server and
// the catalog API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Version is the application version.
const Version = "1.0.0"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// healthCheck handles GET /health requests.
func healthCheck(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Version: Version,
		})
	}
}

// writeJSON writes a JSON response with the given status code. HTML
// characters are written as-is so echoed values come back unchanged.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
