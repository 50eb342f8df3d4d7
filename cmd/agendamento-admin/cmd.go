package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/config"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/database"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/logger"
)

// env holds what every subcommand needs once the root command has run.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

// openDB is swapped in tests.
var openDB = database.NewPostgres

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "agendamento-admin",
		Short:         "Administrative tasks for the scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			db, err := openDB(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			e.cfg, e.logger, e.db = cfg, logr, db
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.db != nil {
				_ = e.db.Close()
			}
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	root.AddCommand(newMigrateCmd(e), newSeedCmd(e), newPurgeLinksCmd(e))
	return root
}
