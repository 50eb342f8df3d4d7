package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	DeleteCascade(ctx context.Context, id string) error
}

// ClassRequest represents payload for creating or updating classes.
type ClassRequest struct {
	CourseID   string `json:"course_id" validate:"required,uuid"`
	SemesterID string `json:"semester_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,max=100"`
}

// ClassService orchestrates class operations.
type ClassService struct {
	repo      classRepository
	semesters semesterLookup
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, semesters semesterLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, semesters: semesters, metrics: metrics, validator: validate, logger: logger}
}

// List returns classes plus pagination data.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class")
	}
	return class, nil
}

// Create registers a class for a course semester.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	class := &models.Class{CourseID: req.CourseID, SemesterID: req.SemesterID, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to create class")
	}
	return class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class")
	}
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	class.CourseID = req.CourseID
	class.SemesterID = req.SemesterID
	class.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to update class")
	}
	return class, nil
}

// Delete removes a class and its schedulings.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return mutationError(err, "delete", "class")
	}
	s.metrics.ObserveCascade("class_delete", time.Since(start))
	s.logger.Info("class deleted", zap.String("class_id", id))
	return nil
}

func (s *ClassService) validate(ctx context.Context, req ClassRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid class payload")
	}
	semester, err := s.semesters.FindSemester(ctx, req.SemesterID)
	if err != nil {
		return lookupError(err, "semester")
	}
	if semester.CourseID != req.CourseID {
		return appErrors.Clone(appErrors.ErrValidation, "semester does not belong to course")
	}
	return nil
}
