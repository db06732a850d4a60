package jwtx

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ES512Signer signs JWTs and raw byte strings with an ECDSA P-521 key.
type ES512Signer struct {
	kid string
	key *ecdsa.PrivateKey
}

// Alg returns the JWS algorithm identifier.
func (s *ES512Signer) Alg() string { return AlgorithmES512 }

// KID returns the key identifier embedded in token headers.
func (s *ES512Signer) KID() string { return s.kid }

// Sign produces a compact serialized JWT over the provided claims.
func (s *ES512Signer) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES512, claims)
	token.Header["kid"] = s.kid

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to sign token: %w", err)
	}
	return signed, nil
}

// SignBytes signs data with ECDSA over a SHA-512 digest, returning an
// ASN.1 DER signature.
func (s *ES512Signer) SignBytes(data []byte) ([]byte, error) {
	digest := sha512.Sum512(data)
	sig, err := ecdsa.SignASN1(rand.Reader, s.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to sign payload: %w", err)
	}
	return sig, nil
}

// VerifyBytes reports whether sig is a valid ECDSA signature over data.
func (s *ES512Signer) VerifyBytes(data, sig []byte) bool {
	digest := sha512.Sum512(data)
	return ecdsa.VerifyASN1(&s.key.PublicKey, digest[:], sig)
}
