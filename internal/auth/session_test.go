package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, sub string, exp time.Time) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)}, nil)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	c := jwt.Claims{Subject: sub, Expiry: jwt.NewNumericDate(exp)}
	tok, err := jwt.Signed(signer).Claims(c).Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return tok
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	v, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	userID := uuid.New()
	tok := signToken(t, testSecret, userID.String(), time.Now().Add(time.Hour))

	got, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != userID {
		t.Fatalf("got %s, want %s", got, userID)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	tok := signToken(t, testSecret, uuid.New().String(), time.Now().Add(-time.Hour))

	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestVerifyRejectsWrongSigningKey(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	tok := signToken(t, "ffffffffffffffffffffffffffffffff", uuid.New().String(), time.Now().Add(time.Hour))

	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected token signed with a different key to be rejected")
	}
}

func TestVerifyRejectsNonUUIDSubject(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	tok := signToken(t, testSecret, "not-a-uuid", time.Now().Add(time.Hour))

	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected non-UUID subject to be rejected")
	}
}

func TestNewVerifierRejectsShortSecret(t *testing.T) {
	if _, err := NewVerifier("too-short"); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}

func TestNewVerifierRejectsEmptySecret(t *testing.T) {
	_, err := NewVerifier("")
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("expected length error, got %v", err)
	}
}
