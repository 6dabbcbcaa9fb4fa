package domain

import "time"

// EventCheckoutCompleted is the only event type that triggers license
// issuance. All other types are acknowledged and dropped.
const EventCheckoutCompleted = "checkout.session.completed"

// PurchaseEvent is an authenticated, deserialized payment notification.
// ID is provider-assigned and stable across redeliveries of the same
// logical event, which makes it the deduplication key.
type PurchaseEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	PurchaserEmail string    `json:"purchaser_email"`
	AmountTotal    int64     `json:"amount_total"`
	OccurredAt     time.Time `json:"occurred_at"`
}
