package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sessionshq/license-service/internal/domain"
)

// CreateLicense inserts the credential. The unique index on
// source_event_id makes this the durable backstop against double
// issuance: a conflicting insert affects zero rows and is reported as
// domain.ErrDuplicateEvent.
func (s *PostgresStore) CreateLicense(ctx context.Context, lic domain.LicenseCredential) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO licenses (key, email, source_event_id, credits, issued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_event_id) DO NOTHING
	`, lic.Key, lic.Email, lic.SourceEventID, lic.Credits, lic.IssuedAt)
	if err != nil {
		return fmt.Errorf("inserting license: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateEvent
	}
	return nil
}

func (s *PostgresStore) GetLicense(ctx context.Context, key string) (*domain.LicenseCredential, error) {
	var lic domain.LicenseCredential
	err := s.pool.QueryRow(ctx, `
		SELECT key, email, source_event_id, credits, issued_at
		FROM licenses WHERE key = $1
	`, key).Scan(&lic.Key, &lic.Email, &lic.SourceEventID, &lic.Credits, &lic.IssuedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying license: %w", err)
	}
	return &lic, nil
}

func (s *PostgresStore) ListLicenses(ctx context.Context, limit int) ([]domain.LicenseCredential, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, email, source_event_id, credits, issued_at
		FROM licenses ORDER BY issued_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying licenses: %w", err)
	}
	defer rows.Close()

	var licenses []domain.LicenseCredential
	for rows.Next() {
		var lic domain.LicenseCredential
		if err := rows.Scan(&lic.Key, &lic.Email, &lic.SourceEventID, &lic.Credits, &lic.IssuedAt); err != nil {
			return nil, fmt.Errorf("scanning license: %w", err)
		}
		licenses = append(licenses, lic)
	}

	if licenses == nil {
		licenses = []domain.LicenseCredential{}
	}

	return licenses, nil
}

func (s *PostgresStore) RecordDeliveryAttempt(ctx context.Context, att domain.DeliveryAttempt) error {
	var errMsg *string
	if att.ErrorMessage != "" {
		errMsg = &att.ErrorMessage
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_attempts (id, license_key, channel, status, error_message, response_time_ms, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, att.ID, att.LicenseKey, att.Channel, att.Status, errMsg, att.ResponseTimeMs, att.AttemptedAt)
	if err != nil {
		return fmt.Errorf("inserting delivery attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDeliveryAttempts(ctx context.Context, licenseKey string, limit int) ([]domain.DeliveryAttempt, error) {
	query := `SELECT id, license_key, channel, status, COALESCE(error_message, ''), response_time_ms, attempted_at FROM delivery_attempts`
	args := []interface{}{}
	argIdx := 1

	if licenseKey != "" {
		query += fmt.Sprintf(" WHERE license_key = $%d", argIdx)
		args = append(args, licenseKey)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY attempted_at DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.DeliveryAttempt
	for rows.Next() {
		var a domain.DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.LicenseKey, &a.Channel, &a.Status, &a.ErrorMessage, &a.ResponseTimeMs, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if attempts == nil {
		attempts = []domain.DeliveryAttempt{}
	}

	return attempts, nil
}
