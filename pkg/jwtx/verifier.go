package jwtx

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned when a token fails signature or claim
	// validation for any reason.
	ErrTokenInvalid = errors.New("jwtx: token invalid")

	// ErrUnknownKID is returned when a token references a key this process
	// does not hold.
	ErrUnknownKID = errors.New("jwtx: unknown key id")
)

// ES512Verifier validates compact JWTs signed with the active key.
type ES512Verifier struct {
	kid    string
	pub    *ecdsa.PublicKey
	issuer string
}

// Verify parses and validates tokenString into claims. The signature,
// algorithm, key id, issuer and time-based claims are all checked.
func (v *ES512Verifier) Verify(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods([]string{AlgorithmES512}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, ErrUnknownKID) {
			return ErrUnknownKID
		}
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func (v *ES512Verifier) keyFunc(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid != v.kid {
		return nil, ErrUnknownKID
	}
	return v.pub, nil
}
