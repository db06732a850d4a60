package sqlite

import (
	"context"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
)

type clientSecretsRepo struct {
	q dbtx
}

func (r *clientSecretsRepo) CreateClientSecret(ctx context.Context, s domain.ClientSecret) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO client_secrets (id, client_id, secret_hash, fingerprint, issued_by)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.ClientID, s.SecretHash, s.Fingerprint, s.IssuedBy)
	return err
}

func (r *clientSecretsRepo) ListClientSecrets(ctx context.Context, clientID string) ([]domain.ClientSecret, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, client_id, secret_hash, fingerprint, issued_by, created_at
		FROM client_secrets WHERE client_id = ?
		ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var secrets []domain.ClientSecret
	for rows.Next() {
		var s domain.ClientSecret
		if err := rows.Scan(&s.ID, &s.ClientID, &s.SecretHash, &s.Fingerprint, &s.IssuedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		secrets = append(secrets, s)
	}
	return secrets, rows.Err()
}

func (r *clientSecretsRepo) DeleteClientSecretByFingerprint(ctx context.Context, clientID, fingerprint string) error {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM client_secrets WHERE client_id = ? AND fingerprint = ?`,
		clientID, fingerprint)
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
