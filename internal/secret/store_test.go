package secret

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kpeterson/optflow/internal/apperror"
)

func testKey(t *testing.T) [KeySize]byte {
	t.Helper()
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	store := New(testKey(t))

	plaintext := []byte("broker-refresh-token-abc123")
	ciphertext, err := store.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := store.Open(ciphertext)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	store := New(testKey(t))

	ciphertext, err := store.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := store.Open(ciphertext); err == nil {
		t.Fatal("expected tampered ciphertext to fail integrity check")
	}
}

func TestLoadKeyRejectsMissing(t *testing.T) {
	_, err := LoadKey("")
	ae, ok := apperror.As(err)
	if !ok || ae.Code != apperror.ConfigFatal {
		t.Fatalf("expected ConfigFatal, got %v", err)
	}
}

func TestLoadKeyRejectsWrongLength(t *testing.T) {
	_, err := LoadKey(strings.Repeat("A", 10))
	ae, ok := apperror.As(err)
	if !ok || ae.Code != apperror.ConfigFatal {
		t.Fatalf("expected ConfigFatal, got %v", err)
	}
}

func TestRotateReEncryptsUnderNewKey(t *testing.T) {
	oldKey := testKey(t)
	newKey := testKey(t)
	newKey[0] ^= 0xFF

	oldStore := New(oldKey)
	newStore := New(newKey)

	ciphertext, err := oldStore.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	rotated, err := newStore.Rotate(oldStore, ciphertext)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if _, err := oldStore.Open(rotated); err == nil {
		t.Fatal("expected rotated ciphertext to be unreadable under the old key")
	}

	got, err := newStore.Open(rotated)
	if err != nil {
		t.Fatalf("Open under new key: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q, want %q", got, "payload")
	}
}
