package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sessionshq/license-service/internal/domain"
)

// Verifier authenticates raw webhook payloads against the provider's
// signature scheme: the signature header carries `t=<unix>,v1=<hex>`
// where v1 is HMAC-SHA256 over "<t>.<raw body>" under the shared secret.
// Verification runs on the exact bytes received on the wire; the body is
// only parsed after the signature checks out.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// envelope is the provider's event wrapper. Only the fields the pipeline
// needs are decoded.
type envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			CustomerEmail   string `json:"customer_email"`
			CustomerDetails struct {
				Email string `json:"email"`
			} `json:"customer_details"`
			AmountTotal int64 `json:"amount_total"`
		} `json:"object"`
	} `json:"data"`
}

// Verify checks the signature header against the raw body and returns the
// decoded purchase event. All failures wrap domain.ErrAuthentication.
func (v *Verifier) Verify(body []byte, sigHeader string) (*domain.PurchaseEvent, error) {
	ts, candidates, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}

	if age := v.now().Sub(time.Unix(ts, 0)); age > v.tolerance || age < -v.tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", domain.ErrAuthentication)
	}

	expected := signPayload(v.secret, ts, body)
	matched := false
	for _, c := range candidates {
		if hmac.Equal(c, expected) {
			matched = true
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: no matching signature", domain.ErrAuthentication)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding event: %v", domain.ErrAuthentication, err)
	}
	if env.ID == "" || env.Type == "" {
		return nil, fmt.Errorf("%w: event missing id or type", domain.ErrAuthentication)
	}

	email := env.Data.Object.CustomerDetails.Email
	if email == "" {
		email = env.Data.Object.CustomerEmail
	}

	return &domain.PurchaseEvent{
		ID:             env.ID,
		Type:           env.Type,
		PurchaserEmail: email,
		AmountTotal:    env.Data.Object.AmountTotal,
		OccurredAt:     time.Unix(env.Created, 0).UTC(),
	}, nil
}

// parseSignatureHeader extracts the timestamp and all v1 signatures from
// a header of the form "t=1492774577,v1=5257a86...,v1=...".
func parseSignatureHeader(header string) (int64, [][]byte, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("missing signature header")
	}

	var ts int64 = -1
	var sigs [][]byte

	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return 0, nil, fmt.Errorf("malformed signature header")
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("malformed timestamp")
			}
			ts = n
		case "v1":
			sig, err := hex.DecodeString(val)
			if err != nil || len(sig) != sha256.Size {
				return 0, nil, fmt.Errorf("malformed signature")
			}
			sigs = append(sigs, sig)
		}
		// Unknown schemes (v0 and friends) are ignored.
	}

	if ts < 0 {
		return 0, nil, fmt.Errorf("signature header missing timestamp")
	}
	if len(sigs) == 0 {
		return 0, nil, fmt.Errorf("signature header missing v1 signature")
	}

	return ts, sigs, nil
}

// signPayload computes HMAC-SHA256 over "<ts>.<body>".
func signPayload(secret string, ts int64, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeader produces a valid header for the given body, timestamp
// and secret. Used by tests and by the local replay tooling.
func SignatureHeader(secret string, ts time.Time, body []byte) string {
	sig := signPayload(secret, ts.Unix(), body)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}
