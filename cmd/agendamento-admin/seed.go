package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/repository"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
)

type adminUsers interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetRoles(ctx context.Context, userID string, roles []string) error
}

type roleSeeder interface {
	Seed(ctx context.Context) error
}

func newSeedCmd(e *env) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed roles, permissions and the first administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = e.cfg.Seed.AdminEmail
			}
			if name == "" {
				name = e.cfg.Seed.AdminName
			}
			roles := service.NewRoleService(repository.NewRoleRepository(e.db), e.logger)
			users := repository.NewUserRepository(e.db)
			return seed(cmd.Context(), roles, users, email, name, e.logger)
		},
	}

	cmd.Flags().StringVar(&email, "admin-email", "", "Administrator email (defaults to SEED_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&name, "admin-name", "", "Administrator display name (defaults to SEED_ADMIN_NAME)")
	return cmd
}

// seed is idempotent: existing users keep their roles and gain admin.
func seed(ctx context.Context, roles roleSeeder, users adminUsers, email, name string, logr *zap.Logger) error {
	if err := roles.Seed(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	logr.Info("roles seeded", zap.Int("roles", len(models.RolePermissions)))

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		logr.Info("no admin email configured, skipping admin user")
		return nil
	}

	user, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		user = &models.User{Name: name, Email: email, Roles: []string{models.RoleAdmin}}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		logr.Info("admin created", zap.String("email", email))
		return nil
	case err != nil:
		return fmt.Errorf("find admin: %w", err)
	}

	for _, role := range user.Roles {
		if role == models.RoleAdmin {
			logr.Info("admin already present", zap.String("email", email))
			return nil
		}
	}
	if err := users.SetRoles(ctx, user.ID, append(user.Roles, models.RoleAdmin)); err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	logr.Info("admin role granted", zap.String("email", email))
	return nil
}
