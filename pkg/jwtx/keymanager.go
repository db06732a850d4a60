package jwtx

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/makerden/memberauth/pkg/cryptox"
)

// AlgorithmES512 is the only signing algorithm this service issues.
// ES512 pairs the P-521 curve with a SHA-512 digest.
const AlgorithmES512 = "ES512"

// KeyManager owns the process-wide signing keypair. It signs and verifies
// both JWTs (ID tokens, member sessions) and raw byte strings (consent-binding
// tokens). The key is read-only after construction, so a single value can be
// shared by every component without synchronization.
type KeyManager struct {
	kid string
	key *ecdsa.PrivateKey

	signer   *ES512Signer
	verifier *ES512Verifier
	keySet   JWKS
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// KeyPEM is the PKCS8 PEM of the ECDSA P-521 private key. When empty a
	// fresh ephemeral key is generated; all outstanding tokens become invalid
	// on restart in that mode.
	KeyPEM []byte

	// KeyID identifies the key in JWTs and the published JWKS.
	// Defaults to a random identifier when empty.
	KeyID string

	// Issuer is the issuer claim (iss) validated in session tokens.
	Issuer string
}

// NewKeyManager imports the configured key, or generates an ephemeral one.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	pemBytes := opts.KeyPEM
	if len(pemBytes) == 0 {
		generated, err := cryptox.GenerateES512Key()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signing key: %w", err)
		}
		pemBytes = generated
	}

	key, err := cryptox.ParseES512Key(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to load signing key: %w", err)
	}

	kid := opts.KeyID
	if kid == "" {
		kid, err = generateRandomKeyID()
		if err != nil {
			return nil, err
		}
	}

	signer := &ES512Signer{kid: kid, key: key}
	verifier := &ES512Verifier{
		kid:    kid,
		pub:    &key.PublicKey,
		issuer: opts.Issuer,
	}

	return &KeyManager{
		kid:      kid,
		key:      key,
		signer:   signer,
		verifier: verifier,
		keySet:   JWKS{Keys: []JWK{NewES512JWK(kid, "sig", AlgorithmES512, &key.PublicKey)}},
	}, nil
}

// Algorithm returns the signing algorithm in use.
func (km *KeyManager) Algorithm() string { return AlgorithmES512 }

// KID returns the active key identifier.
func (km *KeyManager) KID() string { return km.kid }

// Signer returns the JWT signer for the active key.
func (km *KeyManager) Signer() *ES512Signer { return km.signer }

// Verifier returns the JWT verifier bound to the active key and issuer.
func (km *KeyManager) Verifier() *ES512Verifier { return km.verifier }

// PublicJWKS returns the key set for HTTP serving.
func (km *KeyManager) PublicJWKS() JWKS { return km.keySet }

// IsReady reports whether a signing key is loaded.
func (km *KeyManager) IsReady() bool { return km.key != nil }

// SignBytes signs arbitrary bytes with ECDSA over a SHA-512 digest and
// returns an ASN.1 DER signature. Used for consent-binding tokens.
func (km *KeyManager) SignBytes(data []byte) ([]byte, error) {
	return km.signer.SignBytes(data)
}

// VerifyBytes reports whether sig is a valid signature over data.
func (km *KeyManager) VerifyBytes(data, sig []byte) bool {
	return km.signer.VerifyBytes(data, sig)
}

// SubjectKey derives a stable secret for pairwise subject identifiers from
// the private key material. It never leaves the process and changes only
// when the signing key does.
func (km *KeyManager) SubjectKey() []byte {
	h := sha512.New()
	h.Write([]byte("memberauth.pairwise-subject.v1"))
	h.Write(km.key.D.Bytes())
	return h.Sum(nil)
}

// SignClaims signs claims as a compact JWT with the active key.
func (km *KeyManager) SignClaims(claims jwt.Claims) (string, error) {
	return km.signer.Sign(claims)
}

// generateRandomKeyID creates a random key identifier.
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(16)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to generate key ID: %w", err)
	}
	return fmt.Sprintf("memberauth-%s", token), nil
}
