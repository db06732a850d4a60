package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/makerden/memberauth/pkg/idx"
	"github.com/makerden/memberauth/pkg/slogx"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrNotManager     = errors.New("caller does not manage this client")
	ErrBadClientInput = errors.New("invalid client configuration")
)

// ClientService is the management surface: registration, secret rotation
// and the manager list. Every operation except registration requires the
// caller to already manage the target client.
type ClientService struct {
	Store store.Store
}

// RegisterInput carries the caller-provided client registration fields.
type RegisterInput struct {
	Name        string
	Description string
	LogoURI     string
	Callbacks   []string
	Scopes      []string
}

// Register creates a client owned by ownerID, grants the owner management
// rights and mints the first secret. The plaintext secret is returned once
// and never stored.
func (s *ClientService) Register(ctx context.Context, ownerID string, in RegisterInput) (domain.Client, string, error) {
	l := slogx.FromContext(ctx)

	name := strings.TrimSpace(in.Name)
	if name == "" || len(in.Callbacks) == 0 {
		return domain.Client{}, "", ErrBadClientInput
	}
	if err := validateCallbacks(in.Callbacks); err != nil {
		return domain.Client{}, "", err
	}
	if err := validateScopeNames(in.Scopes); err != nil {
		return domain.Client{}, "", err
	}
	if err := validateLogoURI(in.LogoURI); err != nil {
		return domain.Client{}, "", err
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Client{}, "", err
	}
	secretHash, err := cryptox.HashSecret(secret)
	if err != nil {
		return domain.Client{}, "", err
	}

	client := domain.Client{
		ID:           idx.New().String(),
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		LogoURI:      in.LogoURI,
		OwnerID:      ownerID,
		CallbackURLs: in.Callbacks,
		Scopes:       in.Scopes,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Clients().CreateClient(ctx, client); err != nil {
			return err
		}
		if err := tx.Managers().AddManager(ctx, domain.Manager{ClientID: client.ID, UserID: ownerID}); err != nil {
			return err
		}
		return tx.ClientSecrets().CreateClientSecret(ctx, domain.ClientSecret{
			ID:          idx.New().String(),
			ClientID:    client.ID,
			SecretHash:  secretHash,
			Fingerprint: cryptox.FingerprintToken(secret),
			IssuedBy:    ownerID,
		})
	})
	if err != nil {
		return domain.Client{}, "", err
	}

	l.Info("client registered", "client_id", client.ID, "owner_id", ownerID)
	return client, secret, nil
}

// Get returns a client the caller manages.
func (s *ClientService) Get(ctx context.Context, callerID, clientID string) (domain.Client, error) {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return domain.Client{}, err
	}
	return s.Store.Clients().GetClientByID(ctx, clientID)
}

// List returns every client the caller manages.
func (s *ClientService) List(ctx context.Context, callerID string) ([]domain.Client, error) {
	return s.Store.Clients().ListClientsManagedBy(ctx, callerID)
}

// UpdateOptions are the mutable client fields. Nil means unchanged.
type UpdateOptions struct {
	Name        *string
	Description *string
	LogoURI     *string
	Callbacks   *[]string
	Scopes      *[]string
}

// Update applies the provided changes to a managed client.
func (s *ClientService) Update(ctx context.Context, callerID, clientID string, opts UpdateOptions) error {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return err
	}

	if opts.Callbacks != nil {
		if len(*opts.Callbacks) == 0 {
			return ErrBadClientInput
		}
		if err := validateCallbacks(*opts.Callbacks); err != nil {
			return err
		}
	}
	if opts.Scopes != nil {
		if err := validateScopeNames(*opts.Scopes); err != nil {
			return err
		}
	}
	if opts.LogoURI != nil {
		if err := validateLogoURI(*opts.LogoURI); err != nil {
			return err
		}
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if opts.Name != nil {
			name := strings.TrimSpace(*opts.Name)
			if name == "" {
				return ErrBadClientInput
			}
			if err := tx.Clients().UpdateClientName(ctx, clientID, name); err != nil {
				return err
			}
		}
		if opts.Description != nil {
			if err := tx.Clients().UpdateClientDescription(ctx, clientID, strings.TrimSpace(*opts.Description)); err != nil {
				return err
			}
		}
		if opts.LogoURI != nil {
			if err := tx.Clients().UpdateClientLogoURI(ctx, clientID, *opts.LogoURI); err != nil {
				return err
			}
		}
		if opts.Callbacks != nil {
			if err := tx.Clients().ReplaceClientCallbacks(ctx, clientID, *opts.Callbacks); err != nil {
				return err
			}
		}
		if opts.Scopes != nil {
			if err := tx.Clients().ReplaceClientScopes(ctx, clientID, *opts.Scopes); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a managed client and, via schema cascades, its secrets,
// managers and outstanding grants.
func (s *ClientService) Delete(ctx context.Context, callerID, clientID string) error {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return err
	}
	return s.Store.Clients().DeleteClient(ctx, clientID)
}

// AddSecret mints an extra secret for a managed client. Old secrets stay
// valid until deleted, so rotation is downtime-free.
func (s *ClientService) AddSecret(ctx context.Context, callerID, clientID string) (plaintext, fingerprint string, err error) {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return "", "", err
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}
	secretHash, err := cryptox.HashSecret(secret)
	if err != nil {
		return "", "", err
	}

	fingerprint = cryptox.FingerprintToken(secret)
	err = s.Store.ClientSecrets().CreateClientSecret(ctx, domain.ClientSecret{
		ID:          idx.New().String(),
		ClientID:    clientID,
		SecretHash:  secretHash,
		Fingerprint: fingerprint,
		IssuedBy:    callerID,
	})
	if err != nil {
		return "", "", err
	}
	return secret, fingerprint, nil
}

// ListSecrets describes a client's secrets without revealing them.
func (s *ClientService) ListSecrets(ctx context.Context, callerID, clientID string) ([]domain.ClientSecret, error) {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return nil, err
	}
	return s.Store.ClientSecrets().ListClientSecrets(ctx, clientID)
}

// DeleteSecret removes one secret addressed by its fingerprint, never the
// raw value.
func (s *ClientService) DeleteSecret(ctx context.Context, callerID, clientID, fingerprint string) error {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return err
	}
	err := s.Store.ClientSecrets().DeleteClientSecretByFingerprint(ctx, clientID, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return ErrClientNotFound
	}
	return err
}

// ListManagers returns the manager records of a managed client.
func (s *ClientService) ListManagers(ctx context.Context, callerID, clientID string) ([]domain.Manager, error) {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return nil, err
	}
	return s.Store.Managers().ListManagers(ctx, clientID)
}

// AddManager grants another member management rights.
func (s *ClientService) AddManager(ctx context.Context, callerID, clientID, userID string) error {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return err
	}
	if _, err := s.Store.Members().GetMemberByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	return s.Store.Managers().AddManager(ctx, domain.Manager{ClientID: clientID, UserID: userID})
}

// RemoveManager revokes management rights. The owner row is protected by
// the store and reports not found.
func (s *ClientService) RemoveManager(ctx context.Context, callerID, clientID, userID string) error {
	if err := s.requireManager(ctx, callerID, clientID); err != nil {
		return err
	}
	err := s.Store.Managers().RemoveManager(ctx, clientID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMemberNotFound
	}
	return err
}

func (s *ClientService) requireManager(ctx context.Context, callerID, clientID string) error {
	if _, err := s.Store.Clients().GetClientByID(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	ok, err := s.Store.Managers().IsManager(ctx, clientID, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotManager
	}
	return nil
}

func validateCallbacks(callbacks []string) error {
	for _, cb := range callbacks {
		u, err := url.Parse(cb)
		if err != nil || !u.IsAbs() || u.Fragment != "" || strings.Contains(cb, "#") {
			return ErrBadClientInput
		}
	}
	return nil
}

// validateLogoURI accepts an empty logo or an absolute http(s) URL.
func validateLogoURI(logoURI string) error {
	if logoURI == "" {
		return nil
	}
	u, err := url.Parse(logoURI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrBadClientInput
	}
	return nil
}

func validateScopeNames(scopes []string) error {
	for _, scope := range scopes {
		if !domain.ValidScope(scope) {
			return ErrBadClientInput
		}
	}
	return nil
}
