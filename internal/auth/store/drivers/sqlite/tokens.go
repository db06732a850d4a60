package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
)

type tokensRepo struct {
	q dbtx
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO tokens (id, user_id, client_id, code_hash, access_token,
			redirect_uri, nonce, auth_time, code_used, code_expires_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		t.ID, t.UserID, t.ClientID, mapStringNull(t.CodeHash), t.AccessToken,
		t.RedirectURI, t.Nonce, t.AuthTime, t.CodeExpiresAt, t.ExpiresAt); err != nil {
		return err
	}
	for _, scope := range t.Scopes {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO token_scopes (token_id, scope) VALUES (?, ?)`,
			t.ID, scope); err != nil {
			return err
		}
	}
	return nil
}

const tokenColumns = `id, user_id, client_id, code_hash, access_token,
	redirect_uri, nonce, auth_time, code_used, code_expires_at, expires_at, created_at`

func (r *tokensRepo) GetTokenByCodeHash(ctx context.Context, codeHash string) (domain.Token, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens WHERE code_hash = ?`, codeHash)
	return r.scanToken(ctx, row)
}

func (r *tokensRepo) GetTokenByAccessToken(ctx context.Context, accessToken string) (domain.Token, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens WHERE access_token = ?`, accessToken)
	return r.scanToken(ctx, row)
}

// ConsumeCode flips code_used exactly once. The conditional update makes the
// single-use guarantee hold even under concurrent exchange attempts.
func (r *tokensRepo) ConsumeCode(ctx context.Context, tokenID string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE tokens SET code_used = 1 WHERE id = ? AND code_used = 0`, tokenID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tokensRepo) DeleteToken(ctx context.Context, tokenID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, tokenID)
	return err
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, cutoff)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *tokensRepo) scanToken(ctx context.Context, row rowScanner) (domain.Token, error) {
	var (
		t        domain.Token
		codeHash sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.ClientID, &codeHash, &t.AccessToken,
		&t.RedirectURI, &t.Nonce, &t.AuthTime, &t.CodeUsed, &t.CodeExpiresAt,
		&t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	t.CodeHash = mapNullString(codeHash)

	if t.Scopes, err = r.tokenScopes(ctx, t.ID); err != nil {
		return domain.Token{}, err
	}
	return t, nil
}

func (r *tokensRepo) tokenScopes(ctx context.Context, tokenID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT scope FROM token_scopes WHERE token_id = ? ORDER BY scope`, tokenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}
