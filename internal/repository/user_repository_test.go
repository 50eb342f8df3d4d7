package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

func TestUserDeleteRefusesLastAdminInsideTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectBegin()
	expectLock(mock, "users", "admin-1", true)
	expectAdminGrants(mock, "admin-1")
	mock.ExpectRollback()

	err := NewUserRepository(db).DeleteCascade(context.Background(), "admin-1")
	assert.ErrorIs(t, err, ErrLastAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteAdminWithAnotherAdmin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectBegin()
	expectLock(mock, "users", "admin-1", true)
	expectAdminGrants(mock, "admin-1", "admin-2")
	expectSteps(mock,
		"DELETE FROM user_roles WHERE user_id",
		"UPDATE directors SET user_id = NULL",
		"DELETE FROM schedulings WHERE user_id",
		"DELETE FROM magic_link_tokens",
		"DELETE FROM users WHERE id",
	)
	mock.ExpectCommit()

	require.NoError(t, NewUserRepository(db).DeleteCascade(context.Background(), "admin-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSetRolesGuardsDemotion(t *testing.T) {
	t.Run("last admin", func(t *testing.T) {
		db, mock, cleanup := newMock(t)
		defer cleanup()

		mock.ExpectBegin()
		expectLock(mock, "users", "admin-1", true)
		expectAdminGrants(mock, "admin-1", "admin-1")
		mock.ExpectRollback()

		err := NewUserRepository(db).SetRoles(context.Background(), "admin-1", []string{models.RoleProfessor})
		assert.ErrorIs(t, err, ErrLastAdmin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("another admin remains", func(t *testing.T) {
		db, mock, cleanup := newMock(t)
		defer cleanup()

		mock.ExpectBegin()
		expectLock(mock, "users", "admin-1", true)
		expectAdminGrants(mock, "admin-1", "admin-2")
		expectSteps(mock, "DELETE FROM user_roles WHERE user_id", "INSERT INTO user_roles")
		mock.ExpectCommit()

		require.NoError(t, NewUserRepository(db).SetRoles(context.Background(), "admin-1", []string{models.RoleUser}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeping admin skips the lock", func(t *testing.T) {
		db, mock, cleanup := newMock(t)
		defer cleanup()

		mock.ExpectBegin()
		expectLock(mock, "users", "admin-1", true)
		expectSteps(mock, "DELETE FROM user_roles WHERE user_id", "INSERT INTO user_roles")
		mock.ExpectCommit()

		require.NoError(t, NewUserRepository(db).SetRoles(context.Background(), "admin-1", []string{models.RoleAdmin, models.RoleProfessor}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
