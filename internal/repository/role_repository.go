package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

// RoleRepository reads and seeds roles and permissions.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns every role with its permission names.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, `SELECT id, name FROM roles ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	const query = `SELECT rp.role_id, p.name FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id ORDER BY p.name`
	var rows []struct {
		RoleID string `db:"role_id"`
		Name   string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}

	index := make(map[string]int, len(roles))
	for i := range roles {
		roles[i].Permissions = []string{}
		index[roles[i].ID] = i
	}
	for _, row := range rows {
		if i, ok := index[row.RoleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, row.Name)
		}
	}
	return roles, nil
}

// Seed upserts the role and permission catalogue from the given table.
func (r *RoleRepository) Seed(ctx context.Context, table map[string][]string, permissions []string) error {
	return withTx(ctx, r.db, "seed roles", func(tx *sqlx.Tx) error {
		const upsertPermission = `INSERT INTO permissions (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
		for _, name := range permissions {
			if _, err := tx.ExecContext(ctx, upsertPermission, uuid.NewString(), name); err != nil {
				return fmt.Errorf("seed permission %s: %w", name, err)
			}
		}

		const upsertRole = `INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
		const grant = `INSERT INTO role_permissions (role_id, permission_id)
			SELECT r.id, p.id FROM roles r JOIN permissions p ON p.name = $2 WHERE r.name = $1
			ON CONFLICT DO NOTHING`
		for _, role := range models.RoleNames() {
			if _, err := tx.ExecContext(ctx, upsertRole, uuid.NewString(), role); err != nil {
				return fmt.Errorf("seed role %s: %w", role, err)
			}
			for _, perm := range table[role] {
				if _, err := tx.ExecContext(ctx, grant, role, perm); err != nil {
					return fmt.Errorf("grant %s to %s: %w", perm, role, err)
				}
			}
		}
		return nil
	})
}
