// Package secret implements the symmetric authenticated-encryption store
// used to hold third-party broker credentials (C3). A missing or malformed
// key is fatal at startup — the process refuses to begin.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/kpeterson/optflow/internal/apperror"
	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the required raw key length in bytes.
const KeySize = 32

// Store seals and opens credential bytes with XSalsa20-Poly1305
// (nacl/secretbox), keyed by a process-wide 32-byte key.
type Store struct {
	key [KeySize]byte
}

// New builds a Store from a 32-byte key.
func New(key [KeySize]byte) *Store {
	return &Store{key: key}
}

// LoadKey decodes ENCRYPTION_KEY (URL-safe base64, 32 raw bytes) from the
// environment string. A missing or malformed key is ConfigFatal: the caller
// is expected to exit the process rather than start with a broken store.
func LoadKey(encoded string) ([KeySize]byte, error) {
	var key [KeySize]byte
	if encoded == "" {
		return key, apperror.New(apperror.ConfigFatal, "ENCRYPTION_KEY is not set")
	}

	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(encoded)
	if err != nil {
		// Tolerate a trailing '=' the operator may have pasted in.
		raw, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil {
		return key, apperror.Wrap(apperror.ConfigFatal, "ENCRYPTION_KEY is not valid URL-safe base64", err)
	}
	if len(raw) != KeySize {
		return key, apperror.New(apperror.ConfigFatal, fmt.Sprintf("ENCRYPTION_KEY must decode to %d bytes, got %d", KeySize, len(raw)))
	}

	copy(key[:], raw)
	return key, nil
}

// Seal encrypts plaintext, prefixing the ciphertext with a fresh random
// nonce as secretbox.Seal's idiomatic usage expects.
func (s *Store) Seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open decrypts a ciphertext produced by Seal, verifying its integrity tag.
func (s *Store) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, apperror.New(apperror.Validation, "ciphertext too short to contain a nonce")
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])

	plaintext, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &s.key)
	if !ok {
		return nil, apperror.New(apperror.Validation, "ciphertext failed integrity check")
	}
	return plaintext, nil
}

// Rotate re-wraps a ciphertext sealed under oldStore's key so it can be
// stored under this (presumably new-keyed) Store.
func (s *Store) Rotate(oldStore *Store, ciphertext []byte) ([]byte, error) {
	plaintext, err := oldStore.Open(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("opening under old key: %w", err)
	}
	return s.Seal(plaintext)
}
