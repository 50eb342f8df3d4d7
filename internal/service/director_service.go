package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type directorRepository interface {
	List(ctx context.Context, filter models.DirectorFilter) ([]models.Director, int, error)
	FindByID(ctx context.Context, id string) (*models.Director, error)
	CourseIDs(ctx context.Context, directorID string) ([]string, error)
	CourseIDsByUser(ctx context.Context, userID, email string) ([]string, error)
	Create(ctx context.Context, director *models.Director, courseIDs []string) error
	Update(ctx context.Context, director *models.Director, courseIDs []string) error
	DeleteCascade(ctx context.Context, id string) error
}

// DirectorRequest represents payload for creating or updating directors.
type DirectorRequest struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Email     string   `json:"email" validate:"required,email"`
	Status    string   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	UserID    *string  `json:"user_id" validate:"omitempty,uuid"`
	CourseIDs []string `json:"course_ids" validate:"omitempty,dive,uuid"`
}

// DirectorService orchestrates directors and answers which courses a
// signed-in user directs.
type DirectorService struct {
	repo      directorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectorService constructs a DirectorService.
func NewDirectorService(repo directorRepository, validate *validator.Validate, logger *zap.Logger) *DirectorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectorService{repo: repo, validator: validate, logger: logger}
}

// List returns directors plus pagination data.
func (s *DirectorService) List(ctx context.Context, filter models.DirectorFilter) ([]models.Director, *models.Pagination, error) {
	directors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list directors")
	}
	return directors, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a director with directed course ids.
func (s *DirectorService) Get(ctx context.Context, id string) (*models.DirectorDetail, error) {
	director, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "director")
	}
	courseIDs, err := s.repo.CourseIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load director courses")
	}
	return &models.DirectorDetail{Director: *director, CourseIDs: courseIDs}, nil
}

// Create registers a director.
func (s *DirectorService) Create(ctx context.Context, req DirectorRequest) (*models.DirectorDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid director payload")
	}
	director := &models.Director{
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		Status: statusOrDefault(req.Status),
		UserID: normalizeOptional(req.UserID),
	}
	courseIDs := nonNil(uniqueIDs(req.CourseIDs))
	if err := s.repo.Create(ctx, director, courseIDs); err != nil {
		return nil, appErrors.Internal(err, "failed to create director")
	}
	return &models.DirectorDetail{Director: *director, CourseIDs: courseIDs}, nil
}

// Update modifies a director. Omitted course ids leave links unchanged.
func (s *DirectorService) Update(ctx context.Context, id string, req DirectorRequest) (*models.DirectorDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid director payload")
	}
	director, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "director")
	}
	director.Name = strings.TrimSpace(req.Name)
	director.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Status != "" {
		director.Status = statusOrDefault(req.Status)
	}
	director.UserID = normalizeOptional(req.UserID)
	if err := s.repo.Update(ctx, director, uniqueIDs(req.CourseIDs)); err != nil {
		return nil, appErrors.Internal(err, "failed to update director")
	}
	return s.Get(ctx, id)
}

// Delete removes a director and its course links.
func (s *DirectorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return mutationError(err, "delete", "director")
	}
	return nil
}

// DirectedCourseIDs lists the courses the actor directs.
func (s *DirectorService) DirectedCourseIDs(ctx context.Context, actor models.Actor) ([]string, error) {
	if actor.UserID == "" && actor.Email == "" {
		return nil, nil
	}
	ids, err := s.repo.CourseIDsByUser(ctx, actor.UserID, actor.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load directed courses")
	}
	return ids, nil
}
