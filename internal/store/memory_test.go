package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sessionshq/license-service/internal/domain"
)

func testLicense(key, eventID string) domain.LicenseCredential {
	return domain.LicenseCredential{
		Key:           key,
		Email:         "a@example.com",
		SourceEventID: eventID,
		Credits:       20,
		IssuedAt:      time.Now().UTC(),
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	lic := testLicense("cs_key1", "evt_1")
	if err := s.CreateLicense(ctx, lic); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetLicense(ctx, "cs_key1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.SourceEventID != "evt_1" {
		t.Fatalf("got %+v", got)
	}

	missing, err := s.GetLicense(ctx, "cs_other")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing key, got %+v err %v", missing, err)
	}
}

func TestMemoryStore_DuplicateSourceEvent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.CreateLicense(ctx, testLicense("cs_key1", "evt_1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.CreateLicense(ctx, testLicense("cs_key2", "evt_1"))
	if !errors.Is(err, domain.ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}

	// The original credential is untouched.
	got, _ := s.GetLicense(ctx, "cs_key1")
	if got == nil {
		t.Fatal("original credential was lost")
	}
	if dup, _ := s.GetLicense(ctx, "cs_key2"); dup != nil {
		t.Fatal("conflicting credential must not be stored")
	}
}

func TestMemoryStore_ListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.CreateLicense(ctx, testLicense("cs_key1", "evt_1"))
	s.CreateLicense(ctx, testLicense("cs_key2", "evt_2"))
	s.CreateLicense(ctx, testLicense("cs_key3", "evt_3"))

	licenses, err := s.ListLicenses(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(licenses) != 2 {
		t.Fatalf("expected 2, got %d", len(licenses))
	}
	// Newest first.
	if licenses[0].Key != "cs_key3" || licenses[1].Key != "cs_key2" {
		t.Errorf("order: got %q, %q", licenses[0].Key, licenses[1].Key)
	}
}

func TestMemoryStore_DeliveryAttempts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	atts := []domain.DeliveryAttempt{
		{ID: "1", LicenseKey: "cs_key1", Channel: domain.ChannelSendGrid, Status: domain.DeliverySent},
		{ID: "2", LicenseKey: "cs_key2", Channel: domain.ChannelLog, Status: domain.DeliverySent},
	}
	for _, a := range atts {
		if err := s.RecordDeliveryAttempt(ctx, a); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, _ := s.ListDeliveryAttempts(ctx, "", 10)
	if len(all) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(all))
	}

	filtered, _ := s.ListDeliveryAttempts(ctx, "cs_key1", 10)
	if len(filtered) != 1 || filtered[0].ID != "1" {
		t.Fatalf("filter by key failed: %+v", filtered)
	}
}
