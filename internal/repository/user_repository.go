package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

// ErrLastAdmin reports that a write would leave the system without an
// administrator.
var ErrLastAdmin = errors.New("operation would remove the last administrator")

const lockAdminGrantsQuery = `SELECT ur.user_id FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE r.name = $1 FOR UPDATE OF ur`

const userColumns = "u.id, u.name, u.email, u.image, u.email_verified, u.created_at, u.updated_at"

var userDeleteSteps = []cascadeStep{
	{"user roles", `DELETE FROM user_roles WHERE user_id = $1`},
	{"director link", `UPDATE directors SET user_id = NULL WHERE user_id = $1`},
	{"schedulings", `DELETE FROM schedulings WHERE user_id = $1`},
	{"magic link tokens", `DELETE FROM magic_link_tokens WHERE LOWER(email) = (SELECT LOWER(email) FROM users WHERE id = $1)`},
	{"user", `DELETE FROM users WHERE id = $1`},
}

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address with roles loaded.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users u WHERE LOWER(u.email) = LOWER($1) LIMIT 1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if err := r.attachRoles(ctx, []*models.User{&user}); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by identifier with roles loaded.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users u WHERE u.id = $1 LIMIT 1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if err := r.attachRoles(ctx, []*models.User{&user}); err != nil {
		return nil, err
	}
	return &user, nil
}

// List retrieves users using filters and pagination.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	base := "FROM users u WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id AND r.name = $%d)", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY u.created_at DESC LIMIT %d OFFSET %d", userColumns, base, size, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	ptrs := make([]*models.User, len(users))
	for i := range users {
		ptrs[i] = &users[i]
	}
	if err := r.attachRoles(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Create inserts a user and grants its roles.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	return withTx(ctx, r.db, "create user", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO users (id, name, email, image, email_verified, created_at, updated_at)
			VALUES (:id, :name, :email, :image, :email_verified, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return replaceUserRoles(ctx, tx, user.ID, user.Roles)
	})
}

// MarkEmailVerified stamps the email verification time.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET email_verified = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

// SetRoles replaces the roles granted to a user. Dropping admin from the
// only administrator fails with ErrLastAdmin.
func (r *UserRepository) SetRoles(ctx context.Context, userID string, roles []string) error {
	return withTx(ctx, r.db, "set user roles", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "users", userID); err != nil {
			return err
		}
		if !containsString(roles, models.RoleAdmin) {
			if err := guardLastAdmin(ctx, tx, userID); err != nil {
				return err
			}
		}
		return replaceUserRoles(ctx, tx, userID, roles)
	})
}

// DeleteCascade removes a user along with role grants, schedulings and
// pending sign-in tokens. Director records are unlinked, not deleted.
// Deleting the only administrator fails with ErrLastAdmin.
func (r *UserRepository) DeleteCascade(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete user", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "users", id); err != nil {
			return err
		}
		if err := guardLastAdmin(ctx, tx, id); err != nil {
			return err
		}
		return runSteps(ctx, tx, userDeleteSteps, id)
	})
}

// guardLastAdmin locks every admin grant for the rest of tx, so concurrent
// demotions serialise, and refuses when userID holds the only one.
func guardLastAdmin(ctx context.Context, tx *sqlx.Tx, userID string) error {
	var holders []string
	if err := tx.SelectContext(ctx, &holders, lockAdminGrantsQuery, models.RoleAdmin); err != nil {
		return fmt.Errorf("lock admin grants: %w", err)
	}
	admins := make(map[string]struct{}, len(holders))
	for _, holder := range holders {
		admins[holder] = struct{}{}
	}
	if _, ok := admins[userID]; ok && len(admins) <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (r *UserRepository) attachRoles(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	byID := make(map[string]*models.User, len(users))
	for i, u := range users {
		ids[i] = u.ID
		u.Roles = []string{}
		byID[u.ID] = u
	}

	const query = `SELECT ur.user_id, r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = ANY($1) ORDER BY r.name`
	var rows []struct {
		UserID string `db:"user_id"`
		Name   string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load user roles: %w", err)
	}
	for _, row := range rows {
		if u, ok := byID[row.UserID]; ok {
			u.Roles = append(u.Roles, row.Name)
		}
	}
	return nil
}

func replaceUserRoles(ctx context.Context, tx *sqlx.Tx, userID string, roles []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}
	if len(roles) == 0 {
		return nil
	}
	const grant = `INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = ANY($2) ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, grant, userID, pq.Array(roles)); err != nil {
		return fmt.Errorf("grant user roles: %w", err)
	}
	return nil
}
