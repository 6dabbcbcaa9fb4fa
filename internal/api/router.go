package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sessionshq/license-service/internal/pipeline"
	"github.com/sessionshq/license-service/internal/store"
	"github.com/sessionshq/license-service/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(p *pipeline.Pipeline, s store.LicenseStore, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	webhookHandler := NewWebhookHandler(p)
	licenseHandler := NewLicenseHandler(s)

	r.Get("/", BannerHandler())
	r.Get("/health", HealthHandler())

	// Provider webhook — chi answers non-POST methods on this path
	// with 405.
	r.Post("/webhook", webhookHandler.Receive)

	// Operator live feed
	if hub != nil {
		r.Get("/ws", hub.HandleWebSocket)
	}

	// Operator read surface
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		r.Route("/licenses", func(r chi.Router) {
			r.Get("/", licenseHandler.List)
			r.Get("/{key}", licenseHandler.Get)
		})

		r.Get("/deliveries", licenseHandler.ListDeliveries)
	})

	return r
}
