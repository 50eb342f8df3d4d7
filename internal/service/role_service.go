package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type roleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	Seed(ctx context.Context, table map[string][]string, permissions []string) error
}

// RoleService exposes the role and permission catalog.
type RoleService struct {
	repo   roleRepository
	logger *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(repo roleRepository, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{repo: repo, logger: logger}
}

// List returns every role with its permissions.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list roles")
	}
	return roles, nil
}

// Seed writes the static role to permission table. Running it twice is a no-op.
func (s *RoleService) Seed(ctx context.Context) error {
	if err := s.repo.Seed(ctx, models.RolePermissions, models.AllPermissions()); err != nil {
		return appErrors.Internal(err, "failed to seed roles")
	}
	s.logger.Info("roles seeded", zap.Int("roles", len(models.RolePermissions)))
	return nil
}
