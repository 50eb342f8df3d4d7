package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/repository"
)

func newPurgeLinksCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-links",
		Short: "Delete expired sign-in links",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := repository.NewMagicLinkRepository(e.db).DeleteExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			e.logger.Info("sign-in links purged", zap.Int64("removed", removed))
			return nil
		},
	}
}
