package sqlite

import (
	"context"
	"strings"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/domain"
)

type rolesRepo struct {
	db querier
}

const roleColumns = `id, name, description, scopes, created_at`

func (r *rolesRepo) GetByID(ctx context.Context, id string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	return scanRole(row)
}

func (r *rolesRepo) GetByName(ctx context.Context, name string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	return scanRole(row)
}

func (r *rolesRepo) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanRole(row interface{ Scan(dest ...any) error }) (domain.Role, error) {
	var (
		role   domain.Role
		scopes string
	)
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &scopes, &role.CreatedAt); err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	role.Scopes = strings.Fields(scopes)
	return role, nil
}
