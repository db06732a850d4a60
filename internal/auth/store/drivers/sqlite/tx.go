package sqlite

import (
	"context"
	"database/sql"

	"github.com/makerden/memberauth/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits/rollbacks; outer DB stays open

// Ping is a no-op inside a transaction; the connection is already live.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Members() store.Members             { return &membersRepo{q: t.tx} }
func (t *txStore) Clients() store.Clients             { return &clientsRepo{q: t.tx} }
func (t *txStore) ClientSecrets() store.ClientSecrets { return &clientSecretsRepo{q: t.tx} }
func (t *txStore) Managers() store.Managers           { return &managersRepo{q: t.tx} }
func (t *txStore) Tokens() store.Tokens               { return &tokensRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx starts
