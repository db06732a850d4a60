package sqlite

import (
	"context"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
)

type managersRepo struct {
	q dbtx
}

func (r *managersRepo) AddManager(ctx context.Context, m domain.Manager) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO client_managers (client_id, user_id) VALUES (?, ?)
		ON CONFLICT (client_id, user_id) DO NOTHING`,
		m.ClientID, m.UserID)
	return err
}

func (r *managersRepo) RemoveManager(ctx context.Context, clientID, userID string) error {
	// The client owner row is protected at the query level.
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM client_managers
		WHERE client_id = ? AND user_id = ?
		  AND user_id != (SELECT owner_id FROM clients WHERE id = ?)`,
		clientID, userID, clientID)
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

func (r *managersRepo) ListManagers(ctx context.Context, clientID string) ([]domain.Manager, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT client_id, user_id, created_at
		FROM client_managers WHERE client_id = ?
		ORDER BY created_at`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var managers []domain.Manager
	for rows.Next() {
		var m domain.Manager
		if err := rows.Scan(&m.ClientID, &m.UserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}
	return managers, rows.Err()
}

func (r *managersRepo) IsManager(ctx context.Context, clientID, userID string) (bool, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM client_managers WHERE client_id = ? AND user_id = ?`,
		clientID, userID)

	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
