package sqlite

import (
	"context"

	"github.com/makerden/memberauth/internal/auth/domain"
)

type clientsRepo struct {
	q dbtx
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, description, logo_uri, owner_id, created_at, updated_at
		FROM clients WHERE id = ?`, id)

	var c domain.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.LogoURI, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	var err error
	if c.CallbackURLs, err = r.clientCallbacks(ctx, id); err != nil {
		return domain.Client{}, err
	}
	if c.Scopes, err = r.clientScopes(ctx, id); err != nil {
		return domain.Client{}, err
	}
	return c, nil
}

func (r *clientsRepo) ListClientsManagedBy(ctx context.Context, userID string) ([]domain.Client, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.logo_uri, c.owner_id, c.created_at, c.updated_at
		FROM clients c
		JOIN client_managers m ON m.client_id = c.id
		WHERE m.user_id = ?
		ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.LogoURI, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range clients {
		if clients[i].CallbackURLs, err = r.clientCallbacks(ctx, clients[i].ID); err != nil {
			return nil, err
		}
		if clients[i].Scopes, err = r.clientScopes(ctx, clients[i].ID); err != nil {
			return nil, err
		}
	}
	return clients, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO clients (id, name, description, logo_uri, owner_id)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.LogoURI, c.OwnerID); err != nil {
		return err
	}
	for _, url := range c.CallbackURLs {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO client_callbacks (client_id, url) VALUES (?, ?)`,
			c.ID, url); err != nil {
			return err
		}
	}
	for _, scope := range c.Scopes {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO client_scopes (client_id, scope) VALUES (?, ?)`,
			c.ID, scope); err != nil {
			return err
		}
	}
	return nil
}

func (r *clientsRepo) UpdateClientName(ctx context.Context, clientID, name string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE clients SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, clientID)
	return err
}

func (r *clientsRepo) UpdateClientDescription(ctx context.Context, clientID, description string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE clients SET description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		description, clientID)
	return err
}

func (r *clientsRepo) UpdateClientLogoURI(ctx context.Context, clientID, logoURI string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE clients SET logo_uri = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		logoURI, clientID)
	return err
}

func (r *clientsRepo) ReplaceClientCallbacks(ctx context.Context, clientID string, urls []string) error {
	if _, err := r.q.ExecContext(ctx, `
		DELETE FROM client_callbacks WHERE client_id = ?`, clientID); err != nil {
		return err
	}
	for _, url := range urls {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO client_callbacks (client_id, url) VALUES (?, ?)`,
			clientID, url); err != nil {
			return err
		}
	}
	return r.touch(ctx, clientID)
}

func (r *clientsRepo) ReplaceClientScopes(ctx context.Context, clientID string, scopes []string) error {
	if _, err := r.q.ExecContext(ctx, `
		DELETE FROM client_scopes WHERE client_id = ?`, clientID); err != nil {
		return err
	}
	for _, scope := range scopes {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO client_scopes (client_id, scope) VALUES (?, ?)`,
			clientID, scope); err != nil {
			return err
		}
	}
	return r.touch(ctx, clientID)
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, clientID)
	return err
}

func (r *clientsRepo) touch(ctx context.Context, clientID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE clients SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, clientID)
	return err
}

func (r *clientsRepo) clientCallbacks(ctx context.Context, clientID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT url FROM client_callbacks WHERE client_id = ? ORDER BY url`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

func (r *clientsRepo) clientScopes(ctx context.Context, clientID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT scope FROM client_scopes WHERE client_id = ? ORDER BY scope`, clientID)
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
