package main

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/migrations"
)

var gooseRun = func(ctx context.Context, command string, db *sql.DB, args ...string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db, ".", args...)
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|status|version|redo|reset> [args]",
		Short:     "Run database migrations",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"up", "down", "status", "version", "redo", "reset", "up-to", "down-to"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return gooseRun(cmd.Context(), args[0], e.db.DB, args[1:]...)
		},
	}
}
