package main

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/config"
)

func stubDB(t *testing.T) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	prev := openDB
	openDB = func(cfg config.DatabaseConfig) (*sqlx.DB, error) {
		return sqlx.NewDb(db, "postgres"), nil
	}
	t.Cleanup(func() { openDB = prev })
}

func TestMigrateDispatchesToGoose(t *testing.T) {
	stubDB(t)

	var gotCommand string
	var gotArgs []string
	prev := gooseRun
	gooseRun = func(ctx context.Context, command string, db *sql.DB, args ...string) error {
		gotCommand, gotArgs = command, args
		return nil
	}
	t.Cleanup(func() { gooseRun = prev })

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "up-to", "3"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, []string{"3"}, gotArgs)
}

func TestMigrateRequiresCommand(t *testing.T) {
	stubDB(t)
	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

type fakeRoles struct {
	seeded bool
	err    error
}

func (f *fakeRoles) Seed(ctx context.Context) error {
	f.seeded = true
	return f.err
}

type fakeUsers struct {
	existing *models.User
	created  *models.User
	granted  []string
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.existing == nil {
		return nil, sql.ErrNoRows
	}
	return f.existing, nil
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.created = user
	return nil
}

func (f *fakeUsers) SetRoles(ctx context.Context, userID string, roles []string) error {
	f.granted = roles
	return nil
}

func TestSeedCreatesAdmin(t *testing.T) {
	roles, users := &fakeRoles{}, &fakeUsers{}

	require.NoError(t, seed(context.Background(), roles, users, " Admin@UniFil.br ", "Administrador", zap.NewNop()))
	assert.True(t, roles.seeded)
	require.NotNil(t, users.created)
	assert.Equal(t, "admin@unifil.br", users.created.Email)
	assert.Equal(t, []string{models.RoleAdmin}, users.created.Roles)
}

func TestSeedGrantsAdminToExistingUser(t *testing.T) {
	users := &fakeUsers{existing: &models.User{ID: "u1", Roles: []string{models.RoleProfessor}}}

	require.NoError(t, seed(context.Background(), &fakeRoles{}, users, "ana@unifil.br", "", zap.NewNop()))
	assert.Nil(t, users.created)
	assert.Equal(t, []string{models.RoleProfessor, models.RoleAdmin}, users.granted)
}

func TestSeedIsIdempotentForAdmins(t *testing.T) {
	users := &fakeUsers{existing: &models.User{ID: "u1", Roles: []string{models.RoleAdmin}}}

	require.NoError(t, seed(context.Background(), &fakeRoles{}, users, "ana@unifil.br", "", zap.NewNop()))
	assert.Nil(t, users.granted)
}

func TestSeedWithoutEmailOnlySeedsRoles(t *testing.T) {
	roles, users := &fakeRoles{}, &fakeUsers{}

	require.NoError(t, seed(context.Background(), roles, users, "", "", zap.NewNop()))
	assert.True(t, roles.seeded)
	assert.Nil(t, users.created)
}

func TestSeedStopsOnRoleFailure(t *testing.T) {
	users := &fakeUsers{}
	err := seed(context.Background(), &fakeRoles{err: errors.New("boom")}, users, "ana@unifil.br", "", zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, users.created)
}
