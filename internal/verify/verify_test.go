package verify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sessionshq/license-service/internal/domain"
)

const testSecret = "whsec_test_secret"

func testVerifier(now time.Time) *Verifier {
	v := NewVerifier(testSecret, 5*time.Minute)
	v.now = func() time.Time { return now }
	return v
}

func checkoutBody(eventID, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {
			"object": {
				"customer_details": {"email": %q},
				"amount_total": 1900
			}
		}
	}`, eventID, email))
}

func TestVerify_ValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := checkoutBody("evt_1", "a@example.com")
	header := SignatureHeader(testSecret, now, body)

	event, err := testVerifier(now).Verify(body, header)
	if err != nil {
		t.Fatalf("expected valid signature to verify: %v", err)
	}

	if event.ID != "evt_1" {
		t.Errorf("ID: got %q, want %q", event.ID, "evt_1")
	}
	if event.Type != domain.EventCheckoutCompleted {
		t.Errorf("Type: got %q", event.Type)
	}
	if event.PurchaserEmail != "a@example.com" {
		t.Errorf("PurchaserEmail: got %q", event.PurchaserEmail)
	}
	if event.AmountTotal != 1900 {
		t.Errorf("AmountTotal: got %d, want 1900", event.AmountTotal)
	}
	if event.OccurredAt.Unix() != 1700000000 {
		t.Errorf("OccurredAt: got %v", event.OccurredAt)
	}
}

func TestVerify_EmailFallback(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {"customer_email": "fallback@example.com", "amount_total": 500}}
	}`)
	header := SignatureHeader(testSecret, now, body)

	event, err := testVerifier(now).Verify(body, header)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if event.PurchaserEmail != "fallback@example.com" {
		t.Errorf("expected customer_email fallback, got %q", event.PurchaserEmail)
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := checkoutBody("evt_1", "a@example.com")
	header := SignatureHeader(testSecret, now, body)

	tampered := checkoutBody("evt_1", "attacker@example.com")

	_, err := testVerifier(now).Verify(tampered, header)
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for tampered body, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := checkoutBody("evt_1", "a@example.com")
	header := SignatureHeader("whsec_other", now, body)

	_, err := testVerifier(now).Verify(body, header)
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for wrong secret, got %v", err)
	}
}

func TestVerify_HeaderProblems(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := checkoutBody("evt_1", "a@example.com")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no timestamp", "v1=abcd"},
		{"no signature", "t=1700000000"},
		{"garbage", "not-a-signature-header"},
		{"bad timestamp", "t=soon,v1=abcd"},
		{"bad hex", "t=1700000000,v1=zzzz"},
		{"truncated signature", "t=1700000000,v1=abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testVerifier(now).Verify(body, tt.header)
			if !errors.Is(err, domain.ErrAuthentication) {
				t.Fatalf("expected ErrAuthentication, got %v", err)
			}
		})
	}
}

func TestVerify_TimestampOutsideTolerance(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := checkoutBody("evt_1", "a@example.com")

	stale := SignatureHeader(testSecret, now.Add(-6*time.Minute), body)
	if _, err := testVerifier(now).Verify(body, stale); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected stale timestamp to be rejected, got %v", err)
	}

	future := SignatureHeader(testSecret, now.Add(6*time.Minute), body)
	if _, err := testVerifier(now).Verify(body, future); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected future timestamp to be rejected, got %v", err)
	}

	// Inside the window is fine, both directions.
	recent := SignatureHeader(testSecret, now.Add(-4*time.Minute), body)
	if _, err := testVerifier(now).Verify(body, recent); err != nil {
		t.Fatalf("expected timestamp inside tolerance to verify: %v", err)
	}
}

func TestVerify_MultipleSignatures(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := checkoutBody("evt_1", "a@example.com")

	// A rotated-secret header carries the old signature first; any
	// matching v1 must accept.
	good := SignatureHeader(testSecret, now, body)
	bad := SignatureHeader("whsec_retired", now, body)
	combined := bad + good[len("t=1700000000"):]

	if _, err := testVerifier(now).Verify(body, combined); err != nil {
		t.Fatalf("expected any matching v1 to accept: %v", err)
	}
}

func TestVerify_MissingEventFields(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"created": 1700000000}`)
	header := SignatureHeader(testSecret, now, body)

	_, err := testVerifier(now).Verify(body, header)
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected event without id/type to be rejected, got %v", err)
	}
}
