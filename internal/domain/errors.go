package domain

import "errors"

var (
	// ErrAuthentication means the webhook signature was missing, malformed,
	// expired, or did not match the request body.
	ErrAuthentication = errors.New("webhook authentication failed")

	// ErrMissingPurchaser means a verified checkout event carried no
	// deliverable email address.
	ErrMissingPurchaser = errors.New("no purchaser email in event")

	// ErrDuplicateEvent means a license was already issued for this event ID.
	ErrDuplicateEvent = errors.New("event already processed")

	// ErrPersistence means the license store could not durably record the
	// credential. The event must not be acknowledged so the provider retries.
	ErrPersistence = errors.New("license store unavailable")
)
