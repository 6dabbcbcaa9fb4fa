package domain

import "time"

// LicenseCredential is an issued activation key. Exactly one exists per
// distinct SourceEventID. Never mutated after persistence; credit
// consumption belongs to the activation service, not this one.
type LicenseCredential struct {
	Key           string    `json:"key"`
	Email         string    `json:"email"`
	SourceEventID string    `json:"source_event_id"`
	Credits       int       `json:"credits"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Notification channels.
const (
	ChannelSendGrid = "sendgrid"
	ChannelLog      = "log"
)

// Delivery attempt outcomes.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// DeliveryAttempt records one try at handing the key to the purchaser.
// Best effort only — a failed (or unrecorded) attempt never un-issues
// the credential.
type DeliveryAttempt struct {
	ID             string    `json:"id"`
	LicenseKey     string    `json:"license_key"`
	Channel        string    `json:"channel"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ResponseTimeMs int       `json:"response_time_ms"`
	AttemptedAt    time.Time `json:"attempted_at"`
}
