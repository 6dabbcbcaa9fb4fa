package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/sessionshq/license-service/internal/domain"
	"github.com/sessionshq/license-service/internal/pipeline"
)

// Provider event envelopes are small; anything past 1 MiB is not a
// legitimate webhook.
const maxWebhookBody = 1 << 20

// SignatureHeader is the request header carrying the provider signature.
const SignatureHeader = "Stripe-Signature"

type WebhookHandler struct {
	pipeline *pipeline.Pipeline
}

func NewWebhookHandler(p *pipeline.Pipeline) *WebhookHandler {
	return &WebhookHandler{pipeline: p}
}

// Receive handles one provider webhook delivery. The body is passed to
// verification as the exact bytes read off the wire; decoding it here
// first would invalidate the signature.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	_, err = h.pipeline.Handle(r.Context(), body, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		respondError(w, http.StatusBadRequest, "webhook signature verification failed")
	case errors.Is(err, domain.ErrMissingPurchaser):
		respondError(w, http.StatusBadRequest, "no email found")
	case err != nil:
		// Not durably handled — a non-2xx makes the provider redeliver.
		respondError(w, http.StatusBadGateway, "event not processed")
	default:
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}
