package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/hierarchy"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type disciplineRepository interface {
	List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, int, error)
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
	LoadRelations(ctx context.Context, detail *models.DisciplineDetail) error
	Create(ctx context.Context, discipline *models.Discipline, courseIDs, teacherIDs []string) error
	Update(ctx context.Context, discipline *models.Discipline, courseIDs, teacherIDs []string) error
	DeleteCascade(ctx context.Context, id string) error
}

type semesterLookup interface {
	FindSemester(ctx context.Context, id string) (*models.Semester, error)
}

// DisciplineRequest represents payload for creating or updating disciplines.
// When CourseIDs is omitted on create the discipline is linked to the
// course owning its semester.
type DisciplineRequest struct {
	SemesterID string   `json:"semester_id" validate:"required,uuid"`
	Name       string   `json:"name" validate:"required,max=200"`
	Status     string   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	DayPeriods []string `json:"day_periods" validate:"required,min=1"`
	CourseIDs  []string `json:"course_ids" validate:"omitempty,dive,uuid"`
	TeacherIDs []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
}

// DisciplineService orchestrates discipline operations.
type DisciplineService struct {
	repo      disciplineRepository
	semesters semesterLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDisciplineService constructs a DisciplineService.
func NewDisciplineService(repo disciplineRepository, semesters semesterLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DisciplineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisciplineService{repo: repo, semesters: semesters, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns disciplines plus pagination data.
func (s *DisciplineService) List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, *models.Pagination, error) {
	disciplines, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list disciplines")
	}
	return disciplines, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a discipline with its relation ids.
func (s *DisciplineService) Get(ctx context.Context, id string) (*models.DisciplineDetail, error) {
	discipline, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "discipline")
	}
	detail := &models.DisciplineDetail{Discipline: *discipline}
	if err := s.repo.LoadRelations(ctx, detail); err != nil {
		return nil, appErrors.Internal(err, "failed to load discipline relations")
	}
	return detail, nil
}

// Create registers a discipline inside a semester.
func (s *DisciplineService) Create(ctx context.Context, req DisciplineRequest) (*models.DisciplineDetail, error) {
	discipline, semester, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	courseIDs := uniqueIDs(req.CourseIDs)
	if len(courseIDs) == 0 {
		courseIDs = []string{semester.CourseID}
	}
	teacherIDs := nonNil(uniqueIDs(req.TeacherIDs))

	if err := s.repo.Create(ctx, discipline, courseIDs, teacherIDs); err != nil {
		return nil, appErrors.Internal(err, "failed to create discipline")
	}
	s.cache.InvalidateCatalog(ctx)
	return &models.DisciplineDetail{Discipline: *discipline, CourseIDs: courseIDs, TeacherIDs: teacherIDs}, nil
}

// Update modifies a discipline. Omitted link lists are left unchanged.
func (s *DisciplineService) Update(ctx context.Context, id string, req DisciplineRequest) (*models.DisciplineDetail, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "discipline")
	}
	discipline, _, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	discipline.ID = existing.ID
	discipline.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, discipline, uniqueIDs(req.CourseIDs), uniqueIDs(req.TeacherIDs)); err != nil {
		return nil, appErrors.Internal(err, "failed to update discipline")
	}
	s.cache.InvalidateCatalog(ctx)
	return s.Get(ctx, id)
}

// Delete removes a discipline, its schedulings and links in one transaction.
func (s *DisciplineService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return mutationError(err, "delete", "discipline")
	}
	s.metrics.ObserveCascade("discipline_delete", time.Since(start))
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("discipline deleted", zap.String("discipline_id", id))
	return nil
}

func (s *DisciplineService) build(ctx context.Context, req DisciplineRequest) (*models.Discipline, *models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Validation(err, "invalid discipline payload")
	}
	periods, unknown := hierarchy.NormalizePeriods(req.DayPeriods)
	if len(unknown) > 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown periods: "+strings.Join(unknown, ", "))
	}
	if len(periods) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "at least one period is required")
	}
	semester, err := s.semesters.FindSemester(ctx, req.SemesterID)
	if err != nil {
		return nil, nil, lookupError(err, "semester")
	}
	return &models.Discipline{
		SemesterID: semester.ID,
		Name:       strings.TrimSpace(req.Name),
		Status:     statusOrDefault(req.Status),
		DayPeriods: periods,
	}, semester, nil
}
