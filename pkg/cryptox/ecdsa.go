package cryptox

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// GenerateES512Key generates a new ECDSA P-521 private key.
// ES512 pairs the P-521 curve with a SHA-512 digest.
// Returns the private key in PEM format (PKCS8).
func GenerateES512Key() ([]byte, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate ECDSA key: %w", err)
	}

	privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}

	privateKeyPEM := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privateKeyBytes,
	}

	return pem.EncodeToMemory(privateKeyPEM), nil
}

// ParseES512Key loads an ECDSA P-521 private key from PEM bytes (PKCS8).
func ParseES512Key(pemKey []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("cryptox: invalid PEM for ES512 key")
	}

	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("cryptox: expected PRIVATE KEY, got %q (ES512 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
	}

	key, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("cryptox: not ECDSA private key")
	}

	if key.Curve.Params().Name != "P-521" {
		return nil, fmt.Errorf("cryptox: expected P-521 curve, got %s", key.Curve.Params().Name)
	}

	return key, nil
}
