package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "postgres")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

// expectLock registers the FOR UPDATE read of lockRow.
func expectLock(mock sqlmock.Sqlmock, table, id string, found bool) {
	rows := sqlmock.NewRows([]string{"id"})
	if found {
		rows.AddRow(id)
	}
	mock.ExpectQuery("SELECT id FROM " + table + " WHERE id = \\$1 FOR UPDATE").WithArgs(id).WillReturnRows(rows)
}

// expectSteps registers one exec per pattern, in order.
func expectSteps(mock sqlmock.Sqlmock, patterns ...string) {
	for _, p := range patterns {
		mock.ExpectExec(p).WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

// expectAdminGrants registers the locked read of admin role grants.
func expectAdminGrants(mock sqlmock.Sqlmock, holders ...string) {
	rows := sqlmock.NewRows([]string{"user_id"})
	for _, h := range holders {
		rows.AddRow(h)
	}
	mock.ExpectQuery("SELECT ur.user_id FROM user_roles ur .* FOR UPDATE OF ur").WithArgs("admin").WillReturnRows(rows)
}
