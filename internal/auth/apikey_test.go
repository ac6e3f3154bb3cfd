package auth

import (
	"strings"
	"testing"
)

func TestGenerateWarehouseKey(t *testing.T) {
	live, err := GenerateWarehouseKey(true)
	if err != nil {
		t.Fatalf("generate live key: %v", err)
	}
	test, err := GenerateWarehouseKey(false)
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}

	if !strings.HasPrefix(live.Raw, KeyPrefixLive) {
		t.Errorf("live key has wrong prefix: %s", live.Raw)
	}
	if !strings.HasPrefix(test.Raw, KeyPrefixTest) {
		t.Errorf("test key has wrong prefix: %s", test.Raw)
	}
	if !ValidKeyFormat(live.Raw) || !ValidKeyFormat(test.Raw) {
		t.Error("generated keys must pass their own format check")
	}
	if live.Hash != HashKey(live.Raw) {
		t.Error("stored hash does not match the raw key")
	}
	if live.Hash == test.Hash {
		t.Error("two keys produced the same hash")
	}
	if len(live.Prefix) != len(KeyPrefixLive)+4 {
		t.Errorf("display prefix wrong length: %s", live.Prefix)
	}
	if !strings.HasPrefix(live.Raw, live.Prefix) {
		t.Errorf("display prefix %s is not a prefix of the raw key", live.Prefix)
	}
}

func TestValidKeyFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"live key", "wh_live_0123456789abcdef", true},
		{"test key", "wh_test_0123456789abcdef", true},
		{"wrong prefix", "sk_live_0123456789abcdef", false},
		{"too short", "wh_live_0123", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidKeyFormat(tt.raw); got != tt.want {
				t.Errorf("ValidKeyFormat(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name        string
		permissions string
		want        string
		expect      bool
	}{
		{"exact match", "packages:write,customers:read", "packages:write", true},
		{"second entry", "packages:write,customers:read", "customers:read", true},
		{"missing scope", "packages:write", "customers:read", false},
		{"wildcard", "*", "anything:at_all", true},
		{"spaces tolerated", "packages:write, customers:read", "customers:read", true},
		{"empty list", "", "packages:write", false},
		{"no partial match", "packages:write", "packages", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.permissions, tt.want); got != tt.expect {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.permissions, tt.want, got, tt.expect)
			}
		})
	}
}

func TestKeyDisplayPrefixUnknownShape(t *testing.T) {
	if got := KeyDisplayPrefix("something_entirely_else"); len(got) > 12 {
		t.Errorf("fallback prefix too long: %s", got)
	}
}
