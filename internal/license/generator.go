package license

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// License keys are bearer credentials: possession alone redeems the
// purchased credits. They are minted from crypto/rand, never from a
// seeded PRNG.
const (
	keyPrefix = "cs_"
	keyLength = 24
	alphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// maxUnbiased is the largest byte value usable without modulo bias:
// the greatest multiple of len(alphabet) that fits in a byte.
const maxUnbiased = byte(256 / len(alphabet) * len(alphabet)) // 248

var keyPattern = regexp.MustCompile(`^cs_[A-Za-z0-9]{24}$`)

// NewKey mints a license key: the cs_ namespace prefix plus 24 characters
// drawn uniformly from [A-Za-z0-9]. Entropy source failure is fatal — a
// key from a degraded source must never be issued.
func NewKey() string {
	out := make([]byte, 0, len(keyPrefix)+keyLength)
	out = append(out, keyPrefix...)

	buf := make([]byte, 32)
	for len(out) < cap(out) {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("license: reading entropy source: %v", err))
		}
		for _, b := range buf {
			if b >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == cap(out) {
				break
			}
		}
	}

	return string(out)
}

// ValidKey reports whether s has the lexical shape of an issued key.
func ValidKey(s string) bool {
	return keyPattern.MatchString(s)
}

// Redacted returns the form of a key safe for logs and operator feeds:
// the prefix and first four characters only.
func Redacted(key string) string {
	const visible = len(keyPrefix) + 4
	if len(key) <= visible {
		return key
	}
	return key[:visible] + "..."
}
