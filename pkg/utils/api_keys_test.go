package utils

import (
	"strings"
	"testing"
)

func TestNewApiKey(t *testing.T) {
	key, err := NewApiKey()
	if err != nil {
		t.Fatalf("NewApiKey() error = %v", err)
	}
	if !strings.HasPrefix(key, ApiKeyPrefix) || strings.Contains(key, "=") {
		t.Errorf("key = %q", key)
	}
	if len(key) != len(ApiKeyPrefix)+43 {
		t.Errorf("len = %d, want %d", len(key), len(ApiKeyPrefix)+43)
	}
}

func TestHashApiKey(t *testing.T) {
	h := HashApiKey("cf_abc")
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64", len(h))
	}
	if h != HashApiKey("cf_abc") {
		t.Error("hash is not stable")
	}
	if h == HashApiKey("cf_abd") {
		t.Error("different keys share a hash")
	}
}

func TestApiKeyHint(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "cf_abcdefgh", want: "cf_abcd..."},
		{key: "cf_ab", want: "cf_..."},
		{key: "", want: "cf_..."},
	}
	for _, tt := range tests {
		if got := ApiKeyHint(tt.key); got != tt.want {
			t.Errorf("ApiKeyHint(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
