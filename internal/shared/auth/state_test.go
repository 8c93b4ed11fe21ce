package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignerRoundTrip(t *testing.T) {
	signer, err := NewSigner("secret")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := signer.Sign(StateClaims{Sub: "session-1", Nonce: "n1"}, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Sub != "session-1" || claims.Nonce != "n1" || claims.Exp <= claims.Iat {
		t.Fatalf("unexpected claims %#v", claims)
	}
}

func TestSignerRejects(t *testing.T) {
	signer, _ := NewSigner("secret")
	other, _ := NewSigner("other")
	good, _ := signer.Sign(StateClaims{Sub: "s", Nonce: "n"}, time.Minute)
	foreign, _ := other.Sign(StateClaims{Sub: "s", Nonce: "n"}, time.Minute)

	past := &Signer{secret: []byte("secret"), now: func() time.Time { return time.Now().Add(-time.Hour) }}
	expired, _ := past.Sign(StateClaims{Sub: "s", Nonce: "n"}, time.Minute)

	tests := map[string]string{
		"malformed":     "abc",
		"wrong secret":  foreign,
		"expired":       expired,
		"tampered body": strings.Replace(good, ".", ".x", 1),
	}
	for name, token := range tests {
		if _, err := signer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("  "); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
