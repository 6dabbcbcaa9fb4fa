package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sessionshq/license-service/internal/domain"
	"github.com/sessionshq/license-service/internal/license"
	"github.com/sessionshq/license-service/internal/store"
	"github.com/sessionshq/license-service/internal/ws"
)

// Dispatcher hands the issued key to the purchaser. The primary channel
// is the configured mailer; when none is configured, or the mailer call
// fails or times out, the key is written to the structured log so an
// operator can hand-deliver it. Dispatch never fails the pipeline — by
// the time it runs the purchase has already been honored.
type Dispatcher struct {
	mailer  Mailer // nil means log-only
	store   store.LicenseStore
	hub     *ws.Hub
	logger  *slog.Logger
	from    string
	timeout time.Duration
}

func NewDispatcher(mailer Mailer, s store.LicenseStore, hub *ws.Hub, logger *slog.Logger, from string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		mailer:  mailer,
		store:   s,
		hub:     hub,
		logger:  logger,
		from:    from,
		timeout: timeout,
	}
}

// Dispatch attempts delivery of the credential and returns the attempt
// record. The record is also persisted, best effort.
func (d *Dispatcher) Dispatch(ctx context.Context, lic domain.LicenseCredential) domain.DeliveryAttempt {
	start := time.Now()

	att := domain.DeliveryAttempt{
		ID:          uuid.NewString(),
		LicenseKey:  lic.Key,
		AttemptedAt: start.UTC(),
	}

	if d.mailer != nil {
		err := d.sendMail(ctx, lic)
		att.ResponseTimeMs = int(time.Since(start).Milliseconds())
		if err == nil {
			att.Channel = domain.ChannelSendGrid
			att.Status = domain.DeliverySent
			d.logger.Info("license email sent",
				"email", lic.Email,
				"license_key", license.Redacted(lic.Key),
				"response_time_ms", att.ResponseTimeMs,
			)
			d.record(ctx, att)
			d.hub.Broadcast(ws.IssuanceEvent{
				Type:       "notify_sent",
				EventID:    lic.SourceEventID,
				LicenseKey: license.Redacted(lic.Key),
				Channel:    att.Channel,
				Timestamp:  time.Now().UTC(),
			})
			return att
		}

		d.logger.Warn("license email failed, falling back to log channel",
			"email", lic.Email,
			"license_key", license.Redacted(lic.Key),
			"error", err,
		)
		att.ErrorMessage = err.Error()
		d.hub.Broadcast(ws.IssuanceEvent{
			Type:       "notify_failed",
			EventID:    lic.SourceEventID,
			LicenseKey: license.Redacted(lic.Key),
			Channel:    domain.ChannelSendGrid,
			Error:      err.Error(),
			Timestamp:  time.Now().UTC(),
		})
	}

	// Fallback channel: the full key goes to the log on purpose — this
	// is the operator's hand-delivery record.
	d.fallbackLog(lic)

	att.Channel = domain.ChannelLog
	att.Status = domain.DeliverySent
	att.ResponseTimeMs = int(time.Since(start).Milliseconds())
	d.record(ctx, att)
	return att
}

func (d *Dispatcher) sendMail(ctx context.Context, lic domain.LicenseCredential) error {
	text, html, err := renderMail(lic.Key, lic.Credits)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.mailer.Send(sendCtx, Message{
		To:      lic.Email,
		From:    d.from,
		Subject: mailSubject,
		Text:    text,
		HTML:    html,
	})
}

func (d *Dispatcher) fallbackLog(lic domain.LicenseCredential) {
	d.logger.Info("license key generated, manual delivery required",
		"email", lic.Email,
		"license_key", lic.Key,
		"activation_command", "sessions activate "+lic.Key,
		"credits", lic.Credits,
	)
}

// record persists the attempt. Failures are logged and swallowed —
// delivery bookkeeping never aborts the pipeline.
func (d *Dispatcher) record(ctx context.Context, att domain.DeliveryAttempt) {
	if d.store == nil {
		return
	}
	if err := d.store.RecordDeliveryAttempt(ctx, att); err != nil {
		d.logger.Error("failed to record delivery attempt",
			"error", err,
			"license_key", license.Redacted(att.LicenseKey),
		)
	}
}
