package sqlite

import (
	"context"

	"github.com/makerden/memberauth/internal/auth/domain"
)

type membersRepo struct {
	q dbtx
}

func (r *membersRepo) GetMemberByID(ctx context.Context, id string) (domain.Member, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, username, name, email, created_at, updated_at
		FROM members WHERE id = ?`, id)

	var m domain.Member
	if err := row.Scan(&m.ID, &m.Username, &m.Name, &m.Email, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return domain.Member{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membersRepo) GetMemberByEmail(ctx context.Context, email string) (domain.Member, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, username, name, email, created_at, updated_at
		FROM members WHERE email = ?`, email)

	var m domain.Member
	if err := row.Scan(&m.ID, &m.Username, &m.Name, &m.Email, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return domain.Member{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membersRepo) CreateMember(ctx context.Context, m domain.Member) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO members (id, username, name, email) VALUES (?, ?, ?, ?)`,
		m.ID, m.Username, m.Name, m.Email)
	return err
}

func (r *membersRepo) DeleteMember(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	return err
}
