package utils

import (
	"encoding/base64"
	"strings"
	"testing"
)

func newTestCodec(t *testing.T, secret string) *UnsubscribeCodec {
	t.Helper()
	c, err := NewUnsubscribeCodec(secret)
	if err != nil {
		t.Fatalf("NewUnsubscribeCodec() error = %v", err)
	}
	return c
}

func TestUnsubscribeTokenRoundTrip(t *testing.T) {
	c := newTestCodec(t, "secret")

	emails := []string{"reader@example.com", "a+tag@example.org", "weird|pipe@example.net"}
	for _, email := range emails {
		t.Run(email, func(t *testing.T) {
			token, err := c.Generate(email)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			got, ok := c.Verify(token)
			if !ok || got != email {
				t.Errorf("Verify() = %q, %v; want %q, true", got, ok, email)
			}
		})
	}
}

func TestUnsubscribeTokenIsRandomized(t *testing.T) {
	c := newTestCodec(t, "secret")
	a, _ := c.Generate("reader@example.com")
	b, _ := c.Generate("reader@example.com")
	if a == b {
		t.Error("two tokens for the same email should differ")
	}
}

func TestUnsubscribeTokenRejectsGarbage(t *testing.T) {
	c := newTestCodec(t, "secret")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "!!!***"},
		{"no separators", base64.RawURLEncoding.EncodeToString([]byte("nothing here"))},
		{"one separator", base64.RawURLEncoding.EncodeToString([]byte("abc|def"))},
		{"short nonce", base64.RawURLEncoding.EncodeToString([]byte("abcd|a@b.c|deadbeef"))},
		{"empty email", base64.RawURLEncoding.EncodeToString([]byte(strings.Repeat("a", 32) + "||00"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if email, ok := c.Verify(tt.token); ok || email != "" {
				t.Errorf("Verify(%q) = %q, %v; want rejection", tt.token, email, ok)
			}
		})
	}
}

func TestUnsubscribeTokenRejectsTampering(t *testing.T) {
	c := newTestCodec(t, "secret")
	token, err := c.Generate("reader@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	raw, _ := base64.RawURLEncoding.DecodeString(token)
	swapped := strings.Replace(string(raw), "reader@example.com", "victim@example.com", 1)
	forged := base64.RawURLEncoding.EncodeToString([]byte(swapped))
	if _, ok := c.Verify(forged); ok {
		t.Error("Verify() accepted a token with a swapped email")
	}

	other := newTestCodec(t, "another-secret")
	if _, ok := other.Verify(token); ok {
		t.Error("Verify() accepted a token signed with a different secret")
	}
}

func TestNewUnsubscribeCodecRequiresSecret(t *testing.T) {
	if _, err := NewUnsubscribeCodec(""); err == nil {
		t.Error("NewUnsubscribeCodec(\"\") should fail")
	}
}
