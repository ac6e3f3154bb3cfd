package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	KeyPrefixLive = "wh_live_"
	KeyPrefixTest = "wh_test_"
)

// GeneratedKey is returned once at creation time. Only Hash is persisted;
// Raw is shown to the caller and then gone.
type GeneratedKey struct {
	Raw    string
	Prefix string // raw key truncated for display and rate-limit keying
	Hash   string
}

// GenerateWarehouseKey mints a new API key for inter-system warehouse
// access. live=false produces a wh_test_ key for sandbox integrations.
func GenerateWarehouseKey(live bool) (GeneratedKey, error) {
	prefix := KeyPrefixTest
	if live {
		prefix = KeyPrefixLive
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return GeneratedKey{}, err
	}
	raw := prefix + hex.EncodeToString(buf)

	return GeneratedKey{
		Raw:    raw,
		Prefix: KeyDisplayPrefix(raw),
		Hash:   HashKey(raw),
	}, nil
}

// HashKey hashes a raw key for storage and lookup
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// KeyDisplayPrefix returns the identifying prefix of a key, e.g.
// "wh_live_3fa8". Used as the rate-limit bucket key so the full secret
// never ends up in a counter store.
func KeyDisplayPrefix(raw string) string {
	for _, p := range []string{KeyPrefixLive, KeyPrefixTest} {
		if strings.HasPrefix(raw, p) && len(raw) >= len(p)+4 {
			return raw[:len(p)+4]
		}
	}
	if len(raw) > 12 {
		return raw[:12]
	}
	return raw
}

// ValidKeyFormat checks the expected wh_live_/wh_test_ shape before we
// bother hashing and hitting the database.
func ValidKeyFormat(raw string) bool {
	return (strings.HasPrefix(raw, KeyPrefixLive) || strings.HasPrefix(raw, KeyPrefixTest)) &&
		len(raw) > len(KeyPrefixLive)+8
}

// HasPermission checks a comma-separated permission list for a scope like
// "packages:write". A stored "*" grants everything.
func HasPermission(permissions, want string) bool {
	for _, p := range strings.Split(permissions, ",") {
		p = strings.TrimSpace(p)
		if p == "*" || p == want {
			return true
		}
	}
	return false
}
