package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/repository"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetRoles(ctx context.Context, userID string, roles []string) error
	DeleteCascade(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SetRolesRequest replaces a user's roles.
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=admin direcao professor secretaria user"`
}

// UserService handles account administration.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return user, nil
}

// SetRoles replaces the roles of a user. Stripping admin from the only
// administrator is refused.
func (s *UserService) SetRoles(ctx context.Context, actor models.Actor, id string, req SetRolesRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid roles payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}

	roles := uniqueIDs(req.Roles)
	sort.Strings(roles)
	if err := s.repo.SetRoles(ctx, id, roles); err != nil {
		return nil, userWriteError(err, "update", "user roles")
	}

	s.audit(ctx, actor, models.AuditActionRoleChange, id, map[string]interface{}{
		"before": user.Roles,
		"after":  roles,
	}, meta)
	s.logger.Info("user roles updated",
		zap.String("user_id", id),
		zap.Strings("roles", roles),
		zap.String("actor", actor.UserID),
	)

	user.Roles = roles
	return user, nil
}

// Delete removes a user and everything owned by it. The last administrator
// cannot be deleted.
func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string, meta models.RequestMeta) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "user")
	}
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return userWriteError(err, "delete", "user")
	}

	s.audit(ctx, actor, models.AuditActionDelete, id, map[string]interface{}{"email": user.Email}, meta)
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor", actor.UserID))
	return nil
}

// userWriteError maps the in-transaction last-admin refusal before the
// generic mutation errors.
func userWriteError(err error, verb, entity string) error {
	if errors.Is(err, repository.ErrLastAdmin) {
		return appErrors.Clone(appErrors.ErrLastAdmin, "")
	}
	return mutationError(err, verb, entity)
}

func (s *UserService) audit(ctx context.Context, actor models.Actor, action, userID string, values map[string]interface{}, meta models.RequestMeta) {
	payload, _ := json.Marshal(values)
	var actorID *string
	if actor.UserID != "" {
		actorID = &actor.UserID
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
