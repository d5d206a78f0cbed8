package auth

import (
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

// claims are the fields this service reads off an externally-issued JWT.
// sub carries the user ID directly — there is no local session issuer.
type claims struct {
	Subject string `json:"sub"`
}

// Verifier checks the signature and expiry of externally-issued HS256 JWTs.
// It never issues tokens; that belongs to whatever front door sits ahead of
// this service, an authentication provider explicitly out of scope here.
type Verifier struct {
	signingKey []byte
}

// NewVerifier builds a Verifier. The secret must be at least 32 bytes.
func NewVerifier(secret string) (*Verifier, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT signing secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Verifier{signingKey: []byte(secret)}, nil
}

// Verify checks raw's HS256 signature and expiry and returns the user ID
// carried in its subject claim.
func (v *Verifier) Verify(raw string) (uuid.UUID, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing token: %w", err)
	}

	var registered jwt.Claims
	var custom claims
	if err := tok.Claims(v.signingKey, &registered, &custom); err != nil {
		return uuid.Nil, fmt.Errorf("verifying signature: %w", err)
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{Time: time.Now()}, 5*time.Second); err != nil {
		return uuid.Nil, fmt.Errorf("validating claims: %w", err)
	}

	userID, err := uuid.Parse(custom.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject claim is not a UUID: %w", err)
	}
	return userID, nil
}
