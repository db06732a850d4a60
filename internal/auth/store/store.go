package store

import (
	"context"
	"errors"
	"time"

	"github.com/makerden/memberauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers from accidentally nesting transactions.
type Store interface {
	Members() Members
	Clients() Clients
	ClientSecrets() ClientSecrets
	Managers() Managers
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn returns
	// an error and committing otherwise. This is the recommended way to run
	// multi-step operations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Members interface {
	// GetMemberByID returns a member by id.
	GetMemberByID(ctx context.Context, id string) (domain.Member, error)

	// GetMemberByEmail returns a member by email, for login.
	GetMemberByEmail(ctx context.Context, email string) (domain.Member, error)

	// CreateMember inserts a new member (id is provided by app via ULID).
	CreateMember(ctx context.Context, m domain.Member) error

	// DeleteMember cascades to tokens and managed clients per schema.
	DeleteMember(ctx context.Context, id string) error
}

type Clients interface {
	// GetClientByID fetches a client with its callbacks and scopes.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClientsManagedBy returns the clients a member manages, newest first.
	ListClientsManagedBy(ctx context.Context, userID string) ([]domain.Client, error)

	// CreateClient inserts a new client with its callbacks and scopes.
	CreateClient(ctx context.Context, c domain.Client) error

	UpdateClientName(ctx context.Context, clientID, name string) error
	UpdateClientDescription(ctx context.Context, clientID, description string) error
	UpdateClientLogoURI(ctx context.Context, clientID, logoURI string) error

	// ReplaceClientCallbacks swaps the full callback URL set.
	ReplaceClientCallbacks(ctx context.Context, clientID string, urls []string) error

	// ReplaceClientScopes swaps the full allowed scope set. Unknown scope
	// names fail the foreign key into the scope catalog.
	ReplaceClientScopes(ctx context.Context, clientID string, scopes []string) error

	// DeleteClient cascades to secrets, managers and tokens per schema.
	DeleteClient(ctx context.Context, clientID string) error
}

type ClientSecrets interface {
	// CreateClientSecret stores a new hashed secret for a client.
	CreateClientSecret(ctx context.Context, s domain.ClientSecret) error

	// ListClientSecrets returns a client's secrets, newest first.
	ListClientSecrets(ctx context.Context, clientID string) ([]domain.ClientSecret, error)

	// DeleteClientSecretByFingerprint removes one secret identified by its
	// SHA-256 fingerprint.
	DeleteClientSecretByFingerprint(ctx context.Context, clientID, fingerprint string) error
}

type Managers interface {
	// AddManager grants a member management rights over a client.
	AddManager(ctx context.Context, m domain.Manager) error

	// RemoveManager revokes management rights. The client owner cannot be
	// removed.
	RemoveManager(ctx context.Context, clientID, userID string) error

	// ListManagers returns the managers of a client.
	ListManagers(ctx context.Context, clientID string) ([]domain.Manager, error)

	// IsManager reports whether the member manages the client.
	IsManager(ctx context.Context, clientID, userID string) (bool, error)
}

type Tokens interface {
	// CreateToken stores a freshly minted grant (code fingerprint plus raw
	// access token) with its scopes.
	CreateToken(ctx context.Context, t domain.Token) error

	// GetTokenByCodeHash fetches a grant by the code fingerprint presented
	// at exchange time.
	GetTokenByCodeHash(ctx context.Context, codeHash string) (domain.Token, error)

	// GetTokenByAccessToken fetches a grant by its raw access token.
	GetTokenByAccessToken(ctx context.Context, accessToken string) (domain.Token, error)

	// ConsumeCode atomically flips code_used from 0 to 1. It returns
	// ErrNotFound when the code was already consumed, which callers treat
	// as a replay.
	ConsumeCode(ctx context.Context, tokenID string) error

	// DeleteToken removes a grant outright, revoking its access token.
	DeleteToken(ctx context.Context, tokenID string) error

	// DeleteExpiredTokens removes grants whose access token expired before
	// the cutoff. Housekeeping.
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time) error
}
