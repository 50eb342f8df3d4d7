package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/repository"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	deleted   []string
	auditLogs []*models.AuditLog
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, u := range m.users {
		if filter.Role != "" && !hasRole(u.Roles, filter.Role) {
			continue
		}
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-" + user.Email
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	if u, ok := m.users[id]; ok {
		u.EmailVerified = &at
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockUserRepo) SetRoles(ctx context.Context, userID string, roles []string) error {
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if !hasRole(roles, models.RoleAdmin) && m.onlyAdmin(userID) {
		return repository.ErrLastAdmin
	}
	u.Roles = roles
	return nil
}

func (m *mockUserRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	if m.onlyAdmin(id) {
		return repository.ErrLastAdmin
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// onlyAdmin mirrors the locked admin-grant check of the SQL repository.
func (m *mockUserRepo) onlyAdmin(id string) bool {
	admins := 0
	for _, u := range m.users {
		if hasRole(u.Roles, models.RoleAdmin) {
			admins++
		}
	}
	return hasRole(m.users[id].Roles, models.RoleAdmin) && admins <= 1
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

var adminActor = models.Actor{UserID: "admin-1", Roles: []string{models.RoleAdmin}}

func TestUserDeleteLastAdminIsRefused(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "admin-1", Email: "root@unifil.br", Roles: []string{models.RoleAdmin}})
	svc := NewUserService(repo, nil, zap.NewNop())

	err := svc.Delete(context.Background(), adminActor, "admin-1", models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrLastAdmin.Code))
	assert.Empty(t, repo.deleted)
}

func TestUserDeleteAdminWhenAnotherRemains(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "admin-1", Email: "a@unifil.br", Roles: []string{models.RoleAdmin}},
		&models.User{ID: "admin-2", Email: "b@unifil.br", Roles: []string{models.RoleAdmin, models.RoleProfessor}},
	)
	svc := NewUserService(repo, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), adminActor, "admin-2", models.RequestMeta{IP: "10.0.0.1"}))
	assert.Equal(t, []string{"admin-2"}, repo.deleted)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionDelete, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)

	err := svc.Delete(context.Background(), adminActor, "admin-1", models.RequestMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrLastAdmin.Code))
}

func TestUserDeleteNonAdmin(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "admin-1", Email: "a@unifil.br", Roles: []string{models.RoleAdmin}},
		&models.User{ID: "u1", Email: "p@unifil.br", Roles: []string{models.RoleProfessor}},
	)
	svc := NewUserService(repo, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), adminActor, "u1", models.RequestMeta{}))

	err := svc.Delete(context.Background(), adminActor, "u1", models.RequestMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestUserSetRoles(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "admin-1", Email: "a@unifil.br", Roles: []string{models.RoleAdmin}},
		&models.User{ID: "u1", Email: "p@unifil.br", Roles: []string{models.RoleUser}},
	)
	svc := NewUserService(repo, nil, zap.NewNop())
	ctx := context.Background()

	user, err := svc.SetRoles(ctx, adminActor, "u1", SetRolesRequest{Roles: []string{models.RoleProfessor, models.RoleDirection, models.RoleProfessor}}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleDirection, models.RoleProfessor}, user.Roles)
	assert.Equal(t, models.AuditActionRoleChange, repo.auditLogs[0].Action)

	_, err = svc.SetRoles(ctx, adminActor, "admin-1", SetRolesRequest{Roles: []string{models.RoleUser}}, models.RequestMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrLastAdmin.Code))

	_, err = svc.SetRoles(ctx, adminActor, "u1", SetRolesRequest{Roles: []string{"superuser"}}, models.RequestMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestUserListFiltersByRole(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "admin-1", Roles: []string{models.RoleAdmin}},
		&models.User{ID: "u1", Roles: []string{models.RoleUser}},
	)
	svc := NewUserService(repo, nil, zap.NewNop())

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin-1", users[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserDeleteMapsRepositoryFailures(t *testing.T) {
	repo := &failingUserRepo{mockUserRepo: newMockUserRepo(&models.User{ID: "u1", Roles: []string{models.RoleUser}})}
	svc := NewUserService(repo, nil, zap.NewNop())

	repo.err = fmt.Errorf("delete user: %w", repository.ErrLastAdmin)
	err := svc.Delete(context.Background(), adminActor, "u1", models.RequestMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrLastAdmin.Code))

	repo.err = errors.New("connection reset")
	err = svc.Delete(context.Background(), adminActor, "u1", models.RequestMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, repo.auditLogs)
}

type failingUserRepo struct {
	*mockUserRepo
	err error
}

func (f *failingUserRepo) DeleteCascade(ctx context.Context, id string) error {
	return f.err
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
