package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/makerden/memberauth/pkg/slogx"
)

var (
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
)

// TokenService redeems authorization codes for the access tokens minted
// alongside them.
type TokenService struct {
	Store store.Store
}

// ExchangeRequest carries the token endpoint form parameters. Client
// authentication is client_secret_post only.
type ExchangeRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
}

// ExchangeResult is the successful exchange payload.
type ExchangeResult struct {
	AccessToken string
	ExpiresIn   int
	Scopes      []string
}

// Exchange implements the authorization_code grant. Each failure mode maps
// to a distinct OAuth error code; security-sensitive failures stay generic
// and never reveal which check tripped.
func (s *TokenService) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	if strings.TrimSpace(req.GrantType) != "authorization_code" {
		return nil, ErrUnsupportedGrantType
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	codeHash := cryptox.FingerprintToken(code)

	var result *ExchangeResult
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		grant, err := tx.Tokens().GetTokenByCodeHash(ctx, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if grant.ClientID != client.ID {
			return ErrInvalidGrant
		}

		// A reused code invalidates the whole grant: the access token
		// minted with it may have leaked along with the code.
		if grant.CodeUsed {
			l.Warn("authorization code replay detected",
				slog.String("client_id", client.ID),
				slog.String("token_id", grant.ID),
			)
			if err := tx.Tokens().DeleteToken(ctx, grant.ID); err != nil {
				return err
			}
			return ErrInvalidGrant
		}

		if grant.CodeExpired(now) {
			return ErrInvalidGrant
		}

		if err := checkRedirectMatch(client, grant, req.RedirectURI); err != nil {
			return err
		}

		// Conditional update: exactly one concurrent exchange can win.
		if err := tx.Tokens().ConsumeCode(ctx, grant.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				if derr := tx.Tokens().DeleteToken(ctx, grant.ID); derr != nil {
					return derr
				}
				return ErrInvalidGrant
			}
			return err
		}

		result = &ExchangeResult{
			AccessToken: grant.AccessToken,
			ExpiresIn:   int(time.Until(grant.ExpiresAt).Seconds()),
			Scopes:      grant.Scopes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// authenticateClient verifies the client_id/client_secret pair against the
// client's valid secrets. Any one of the active secrets may match, so
// rotation never locks a client out.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (domain.Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return domain.Client{}, ErrInvalidClient
	}

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}

	secrets, err := s.Store.ClientSecrets().ListClientSecrets(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	for _, secret := range secrets {
		if cryptox.VerifySecret(clientSecret, secret.SecretHash) == nil {
			return client, nil
		}
	}
	return domain.Client{}, ErrInvalidClient
}

// checkRedirectMatch enforces the issuance-time redirect binding. A
// redirect_uri supplied at exchange must byte-equal the recorded value; an
// omitted one is acceptable only when the request could legitimately have
// omitted it at authorization time too.
func checkRedirectMatch(client domain.Client, grant domain.Token, redirectURI string) error {
	redirectURI = strings.TrimSpace(redirectURI)
	if redirectURI == "" {
		if len(client.CallbackURLs) == 1 && client.CallbackURLs[0] == grant.RedirectURI {
			return nil
		}
		return ErrInvalidRequest
	}
	if redirectURI != grant.RedirectURI {
		return ErrInvalidRequest
	}
	return nil
}
