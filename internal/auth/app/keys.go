package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/makerden/memberauth/pkg/jwtx"
)

// InitAuthKeys builds the ES512 key manager. With AUTH_SIGNING_KEY_FILE set
// the key is loaded from a PEM file and survives restarts; otherwise an
// ephemeral key is generated, which invalidates outstanding ID tokens and
// member sessions on every restart.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{Issuer: cfg.Issuer}

	if cfg.SigningKeyFile != "" {
		pem, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read signing key file: %w", err)
		}
		opts.KeyPEM = pem
	}

	keyManager, err := jwtx.NewKeyManager(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize key manager: %w", err)
	}

	if cfg.SigningKeyFile != "" {
		logger.Info("signing key loaded", "kid", keyManager.KID(), "path", cfg.SigningKeyFile)
	} else {
		logger.Info("ephemeral signing key generated", "kid", keyManager.KID())
		logger.Warn("outstanding ID tokens and sessions are now invalid")
	}

	return keyManager, nil
}
