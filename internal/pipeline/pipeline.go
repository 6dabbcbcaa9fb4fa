package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sessionshq/license-service/internal/domain"
	"github.com/sessionshq/license-service/internal/idempotency"
	"github.com/sessionshq/license-service/internal/license"
	"github.com/sessionshq/license-service/internal/notify"
	"github.com/sessionshq/license-service/internal/store"
	"github.com/sessionshq/license-service/internal/verify"
	"github.com/sessionshq/license-service/internal/ws"
)

// Disposition says how an acknowledged event was handled.
type Disposition string

const (
	// DispositionIssued: fresh checkout event, credential minted and
	// persisted, notification attempted.
	DispositionIssued Disposition = "issued"

	// DispositionDuplicate: redelivery of an already-processed event;
	// no side effects.
	DispositionDuplicate Disposition = "duplicate"

	// DispositionIgnored: authentic event of a type this service does
	// not act on.
	DispositionIgnored Disposition = "ignored"
)

// Receipt is the terminal result of a successfully acknowledged event.
type Receipt struct {
	Disposition Disposition
	LicenseKey  string
}

// Pipeline runs one webhook event through verify → claim → mint →
// persist → notify. Both deployment adapters (the listening server and
// the single-invocation handler) share one Pipeline, so the state
// machine has exactly one implementation.
type Pipeline struct {
	verifier   *verify.Verifier
	guard      idempotency.Guard
	store      store.LicenseStore
	dispatcher *notify.Dispatcher
	hub        *ws.Hub
	logger     *slog.Logger
	credits    int
	now        func() time.Time
}

func New(verifier *verify.Verifier, guard idempotency.Guard, s store.LicenseStore, dispatcher *notify.Dispatcher, hub *ws.Hub, logger *slog.Logger, credits int) *Pipeline {
	return &Pipeline{
		verifier:   verifier,
		guard:      guard,
		store:      s,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		credits:    credits,
		now:        time.Now,
	}
}

// Handle processes one raw webhook delivery.
//
// Errors map to boundary responses: domain.ErrAuthentication and
// domain.ErrMissingPurchaser are client errors (no retry will help);
// domain.ErrPersistence means the event was not durably handled and the
// transport must redeliver it. Notification failure is never an error —
// by then the purchase is already honored.
func (p *Pipeline) Handle(ctx context.Context, body []byte, sigHeader string) (Receipt, error) {
	event, err := p.verifier.Verify(body, sigHeader)
	if err != nil {
		p.logger.Warn("webhook rejected", "error", err)
		return Receipt{}, err
	}

	if event.Type != domain.EventCheckoutCompleted {
		// Still acknowledged so the provider stops retrying.
		p.logger.Info("ignoring event type", "event_id", event.ID, "event_type", event.Type)
		return Receipt{Disposition: DispositionIgnored}, nil
	}

	if event.PurchaserEmail == "" {
		p.logger.Error("checkout event has no purchaser email", "event_id", event.ID)
		return Receipt{}, fmt.Errorf("%w: event %s", domain.ErrMissingPurchaser, event.ID)
	}

	outcome, err := p.guard.Claim(ctx, event.ID)
	if err != nil {
		// Can't prove the event is fresh; let the transport redeliver.
		return Receipt{}, fmt.Errorf("%w: claiming event: %v", domain.ErrPersistence, err)
	}
	if outcome == idempotency.Duplicate {
		p.logger.Info("duplicate delivery skipped", "event_id", event.ID)
		p.hub.Broadcast(ws.IssuanceEvent{
			Type:      "duplicate_skipped",
			EventID:   event.ID,
			Timestamp: p.now().UTC(),
		})
		return Receipt{Disposition: DispositionDuplicate}, nil
	}

	lic := domain.LicenseCredential{
		Key:           license.NewKey(),
		Email:         event.PurchaserEmail,
		SourceEventID: event.ID,
		Credits:       p.credits,
		IssuedAt:      p.now().UTC(),
	}

	if err := p.store.CreateLicense(ctx, lic); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			// The claim raced a completed issuance (guard state lost or
			// expired). The store's uniqueness is authoritative.
			if cerr := p.guard.Complete(ctx, event.ID); cerr != nil {
				p.logger.Error("failed to mark duplicate event complete", "event_id", event.ID, "error", cerr)
			}
			p.logger.Info("license already issued for event", "event_id", event.ID)
			return Receipt{Disposition: DispositionDuplicate}, nil
		}

		// Release so a legitimate retry can re-attempt issuance.
		if rerr := p.guard.Release(ctx, event.ID); rerr != nil {
			p.logger.Error("failed to release claim", "event_id", event.ID, "error", rerr)
		}
		p.logger.Error("failed to persist license", "event_id", event.ID, "error", err)
		return Receipt{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	// The credential is durable; the claim must never be released past
	// this point, whatever notification does.
	if err := p.guard.Complete(ctx, event.ID); err != nil {
		p.logger.Error("failed to mark event complete", "event_id", event.ID, "error", err)
	}

	p.logger.Info("purchase completed",
		"event_id", event.ID,
		"email", event.PurchaserEmail,
		"license_key", license.Redacted(lic.Key),
		"amount_total", event.AmountTotal,
	)
	p.hub.Broadcast(ws.IssuanceEvent{
		Type:       "license_issued",
		EventID:    event.ID,
		LicenseKey: license.Redacted(lic.Key),
		Timestamp:  p.now().UTC(),
	})

	p.dispatcher.Dispatch(ctx, lic)

	return Receipt{Disposition: DispositionIssued, LicenseKey: lic.Key}, nil
}
