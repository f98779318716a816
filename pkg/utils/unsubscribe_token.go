package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const unsubscribeNonceBytes = 16

// UnsubscribeCodec signs and verifies the tokens carried by unsubscribe links.
// A token is base64url(nonce|email|hex(hmac-sha256(nonce|email))).
type UnsubscribeCodec struct {
	secret []byte
}

func NewUnsubscribeCodec(secret string) (*UnsubscribeCodec, error) {
	if secret == "" {
		return nil, errors.New("unsubscribe secret is empty")
	}
	return &UnsubscribeCodec{secret: []byte(secret)}, nil
}

func (c *UnsubscribeCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *UnsubscribeCodec) Generate(email string) (string, error) {
	nonce := make([]byte, unsubscribeNonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	payload := hex.EncodeToString(nonce) + "|" + email
	raw := payload + "|" + c.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// Verify returns the email bound to the token. Any malformed or tampered
// token yields ok=false.
func (c *UnsubscribeCodec) Verify(token string) (email string, ok bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return "", false
	}
	raw := string(decoded)

	first := strings.Index(raw, "|")
	last := strings.LastIndex(raw, "|")
	if first < 0 || last <= first {
		return "", false
	}

	nonce, email, signature := raw[:first], raw[first+1:last], raw[last+1:]
	if len(nonce) != unsubscribeNonceBytes*2 || email == "" {
		return "", false
	}
	if _, err := hex.DecodeString(nonce); err != nil {
		return "", false
	}

	expected := c.sign(nonce + "|" + email)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}
	return email, true
}
