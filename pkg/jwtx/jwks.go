package jwtx

import (
	"crypto/ecdsa"
	"encoding/base64"
)

// JWK represents a public key in JSON Web Key format (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`           // key type: "EC"
	Use string `json:"use,omitempty"` // what we use it for: "sig"
	Alg string `json:"alg,omitempty"` // algorithm: "ES512"
	Kid string `json:"kid,omitempty"` // key ID

	// ECDSA / EC fields
	Crv string `json:"crv,omitempty"` // curve: "P-521"
	X   string `json:"x,omitempty"`   // base64url encoded x-coordinate
	Y   string `json:"y,omitempty"`   // base64url encoded y-coordinate
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// p521FieldBytes is the byte length of a P-521 coordinate (521 bits).
const p521FieldBytes = 66

// NewES512JWK builds a JWK for an ECDSA P-521 public key.
// Coordinates are left-padded to the full 66-byte field size so the
// encoding stays consistent regardless of leading zero bytes.
func NewES512JWK(kid, use, alg string, pub *ecdsa.PublicKey) JWK {
	xBytes := pub.X.Bytes()
	yBytes := pub.Y.Bytes()

	x := make([]byte, p521FieldBytes)
	y := make([]byte, p521FieldBytes)
	copy(x[p521FieldBytes-len(xBytes):], xBytes)
	copy(y[p521FieldBytes-len(yBytes):], yBytes)

	return JWK{
		Kty: "EC",
		Use: use,
		Alg: alg,
		Kid: kid,
		Crv: "P-521",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}
}
