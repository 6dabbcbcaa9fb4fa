package store

import (
	"context"
	"sync"

	"github.com/sessionshq/license-service/internal/domain"
)

// MemoryStore keeps licenses and delivery attempts in process memory.
// Used when no DATABASE_URL is configured and throughout the tests. It
// honors the same uniqueness contract as the Postgres store.
type MemoryStore struct {
	mu        sync.Mutex
	byKey     map[string]domain.LicenseCredential
	byEventID map[string]string
	ordered   []string
	attempts  []domain.DeliveryAttempt

	// FailCreates makes CreateLicense fail, for exercising the
	// persistence-failure path in tests.
	FailCreates bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:     make(map[string]domain.LicenseCredential),
		byEventID: make(map[string]string),
	}
}

func (s *MemoryStore) CreateLicense(_ context.Context, lic domain.LicenseCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreates {
		return domain.ErrPersistence
	}
	if _, exists := s.byEventID[lic.SourceEventID]; exists {
		return domain.ErrDuplicateEvent
	}

	s.byKey[lic.Key] = lic
	s.byEventID[lic.SourceEventID] = lic.Key
	s.ordered = append(s.ordered, lic.Key)
	return nil
}

func (s *MemoryStore) GetLicense(_ context.Context, key string) (*domain.LicenseCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lic, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	return &lic, nil
}

func (s *MemoryStore) ListLicenses(_ context.Context, limit int) ([]domain.LicenseCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	licenses := []domain.LicenseCredential{}
	for i := len(s.ordered) - 1; i >= 0 && len(licenses) < limit; i-- {
		licenses = append(licenses, s.byKey[s.ordered[i]])
	}
	return licenses, nil
}

func (s *MemoryStore) RecordDeliveryAttempt(_ context.Context, att domain.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, att)
	return nil
}

func (s *MemoryStore) ListDeliveryAttempts(_ context.Context, licenseKey string, limit int) ([]domain.DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := []domain.DeliveryAttempt{}
	for i := len(s.attempts) - 1; i >= 0 && len(attempts) < limit; i-- {
		if licenseKey != "" && s.attempts[i].LicenseKey != licenseKey {
			continue
		}
		attempts = append(attempts, s.attempts[i])
	}
	return attempts, nil
}
