package api

import (
	"net/http"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthHandler returns the health check handler.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Version: "1.0.0",
		})
	}
}

// BannerHandler answers the root path with a service banner.
func BannerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"service":   "Sessions License Webhook",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
