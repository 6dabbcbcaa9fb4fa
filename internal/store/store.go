package store

import (
	"context"

	"github.com/sessionshq/license-service/internal/domain"
)

// LicenseStore is the narrow persistence surface the pipeline depends on.
// CreateLicense must be atomic per source event: inserting a second
// credential for an already-recorded source_event_id reports
// domain.ErrDuplicateEvent and leaves the first untouched.
type LicenseStore interface {
	CreateLicense(ctx context.Context, lic domain.LicenseCredential) error
	GetLicense(ctx context.Context, key string) (*domain.LicenseCredential, error)
	ListLicenses(ctx context.Context, limit int) ([]domain.LicenseCredential, error)

	RecordDeliveryAttempt(ctx context.Context, att domain.DeliveryAttempt) error
	ListDeliveryAttempts(ctx context.Context, licenseKey string, limit int) ([]domain.DeliveryAttempt, error)
}
