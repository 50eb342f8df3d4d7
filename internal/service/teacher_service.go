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

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	LoadRelations(ctx context.Context, detail *models.TeacherDetail) error
	Create(ctx context.Context, teacher *models.Teacher, courseIDs, disciplineIDs []string) error
	Update(ctx context.Context, teacher *models.Teacher, courseIDs, disciplineIDs []string) error
	DeleteCascade(ctx context.Context, id string) error
}

// TeacherRequest represents payload for creating or updating teachers.
type TeacherRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Status        string   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	CourseIDs     []string `json:"course_ids" validate:"omitempty,dive,uuid"`
	DisciplineIDs []string `json:"discipline_ids" validate:"omitempty,dive,uuid"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list teachers")
	}
	return teachers, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher with course and discipline ids.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	detail := &models.TeacherDetail{Teacher: *teacher}
	if err := s.repo.LoadRelations(ctx, detail); err != nil {
		return nil, appErrors.Internal(err, "failed to load teacher relations")
	}
	return detail, nil
}

// Create registers a new teacher record.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	teacher := &models.Teacher{Name: strings.TrimSpace(req.Name), Status: statusOrDefault(req.Status)}
	courseIDs, disciplineIDs := nonNil(uniqueIDs(req.CourseIDs)), nonNil(uniqueIDs(req.DisciplineIDs))
	if err := s.repo.Create(ctx, teacher, courseIDs, disciplineIDs); err != nil {
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	return &models.TeacherDetail{Teacher: *teacher, CourseIDs: courseIDs, DisciplineIDs: disciplineIDs}, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	teacher.Name = strings.TrimSpace(req.Name)
	if req.Status != "" {
		teacher.Status = statusOrDefault(req.Status)
	}
	if err := s.repo.Update(ctx, teacher, uniqueIDs(req.CourseIDs), uniqueIDs(req.DisciplineIDs)); err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher")
	}
	return s.Get(ctx, id)
}

// Delete removes a teacher and its course and discipline links.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return mutationError(err, "delete", "teacher")
	}
	s.metrics.ObserveCascade("teacher_delete", time.Since(start))
	s.logger.Info("teacher deleted", zap.String("teacher_id", id))
	return nil
}
