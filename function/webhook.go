// Package function exposes the webhook pipeline as a single-invocation
// HTTP handler for serverless platforms. It wraps the same pipeline the
// long-running server uses; only the wiring differs.
package function

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/sessionshq/license-service/internal/api"
	"github.com/sessionshq/license-service/internal/app"
	"github.com/sessionshq/license-service/internal/config"
)

var (
	initOnce sync.Once
	handler  *api.WebhookHandler
	initErr  error
)

func setup() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}

	// No migrations and no live feed: a function instance owns no
	// long-lived process to run them in.
	application, err := app.Build(context.Background(), cfg, logger, app.Options{})
	if err != nil {
		initErr = err
		return
	}
	handler = api.NewWebhookHandler(application.Pipeline)
}

// Webhook is the exported entrypoint. Point the platform's route for
// POST /webhook (or /api/webhook) at this function; the path itself is
// not inspected.
func Webhook(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(setup)
	if initErr != nil {
		http.Error(w, `{"error":"service misconfigured"}`, http.StatusInternalServerError)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	handler.Receive(w, r)
}
