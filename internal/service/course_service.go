package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/hierarchy"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListSemesters(ctx context.Context, courseID string) ([]models.Semester, error)
	FindSemester(ctx context.Context, id string) (*models.Semester, error)
	LoadRelations(ctx context.Context, detail *models.CourseDetail) error
	Create(ctx context.Context, course *models.Course, teacherIDs, directorIDs []string) ([]models.Semester, error)
	UpdateWithResize(ctx context.Context, course *models.Course, teacherIDs, directorIDs []string) (hierarchy.ResizePlan, error)
	DeleteCascade(ctx context.Context, id string) error
}

// CreateCourseRequest represents payload for creating courses.
type CreateCourseRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	Status           string   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Periods          []string `json:"periods" validate:"required,min=1"`
	SemesterDuration int      `json:"semester_duration" validate:"required,min=1,max=20"`
	TeacherIDs       []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
	DirectorIDs      []string `json:"director_ids" validate:"omitempty,dive,uuid"`
}

// UpdateCourseRequest represents payload for updating courses. Omitted
// link lists leave the existing links in place.
type UpdateCourseRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	Status           string   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Periods          []string `json:"periods" validate:"required,min=1"`
	SemesterDuration int      `json:"semester_duration" validate:"required,min=1,max=20"`
	TeacherIDs       []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
	DirectorIDs      []string `json:"director_ids" validate:"omitempty,dive,uuid"`
}

// CourseService orchestrates course operations and keeps the semester
// hierarchy consistent with the course duration.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns courses plus pagination data.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course with its ordered semesters and relation ids.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	var cached models.CourseDetail
	if s.cache.Get(ctx, cacheKeyCourse+id, &cached) {
		return &cached, nil
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	detail := &models.CourseDetail{Course: *course}
	if detail.Semesters, err = s.repo.ListSemesters(ctx, id); err != nil {
		return nil, appErrors.Internal(err, "failed to load semesters")
	}
	if err := s.repo.LoadRelations(ctx, detail); err != nil {
		return nil, appErrors.Internal(err, "failed to load course relations")
	}

	s.cache.Set(ctx, cacheKeyCourse+id, detail)
	return detail, nil
}

// ListSemesters returns the semesters of a course ordered by ordinal.
func (s *CourseService) ListSemesters(ctx context.Context, courseID string) ([]models.Semester, error) {
	var cached []models.Semester
	if s.cache.Get(ctx, cacheKeySemesters+courseID, &cached) {
		return cached, nil
	}
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course")
	}
	semesters, err := s.repo.ListSemesters(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load semesters")
	}
	s.cache.Set(ctx, cacheKeySemesters+courseID, semesters)
	return semesters, nil
}

// Create registers a course with semesters "Período 1" to "Período N".
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	periods, err := normalizeCoursePeriods(req.Periods)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Name:             strings.TrimSpace(req.Name),
		Status:           statusOrDefault(req.Status),
		Periods:          periods,
		SemesterDuration: req.SemesterDuration,
	}
	teacherIDs, directorIDs := uniqueIDs(req.TeacherIDs), uniqueIDs(req.DirectorIDs)
	semesters, err := s.repo.Create(ctx, course, teacherIDs, directorIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create course")
	}
	s.cache.InvalidateCatalog(ctx)

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.Int("semesters", len(semesters)))
	return &models.CourseDetail{
		Course:        *course,
		Semesters:     semesters,
		TeacherIDs:    nonNil(teacherIDs),
		DisciplineIDs: []string{},
		DirectorIDs:   nonNil(directorIDs),
	}, nil
}

// Update modifies a course. Changing the semester duration removes the
// trailing semesters (with their disciplines, classes and schedulings) or
// appends new ones, all in the same transaction as the field update.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	periods, err := normalizeCoursePeriods(req.Periods)
	if err != nil {
		return nil, err
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	course.Name = strings.TrimSpace(req.Name)
	if req.Status != "" {
		course.Status = statusOrDefault(req.Status)
	}
	course.Periods = periods
	course.SemesterDuration = req.SemesterDuration

	start := time.Now()
	plan, err := s.repo.UpdateWithResize(ctx, course, uniqueIDs(req.TeacherIDs), uniqueIDs(req.DirectorIDs))
	if err != nil {
		if errors.Is(err, hierarchy.ErrInvalidDuration) {
			return nil, appErrors.Validation(err, err.Error())
		}
		return nil, mutationError(err, "update", "course")
	}
	s.metrics.ObserveCascade("course_resize", time.Since(start))
	if !plan.Empty() {
		s.logger.Info("course semesters resized",
			zap.String("course_id", id),
			zap.Int("duration", course.SemesterDuration),
			zap.Int("removed", len(plan.Remove)),
			zap.Int("added", len(plan.Add)))
	}
	s.cache.InvalidateCatalog(ctx)

	return s.Get(ctx, id)
}

// Delete removes a course and every dependent row in one transaction.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return mutationError(err, "delete", "course")
	}
	s.metrics.ObserveCascade("course_delete", time.Since(start))
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

func normalizeCoursePeriods(periods []string) ([]string, error) {
	out, unknown := hierarchy.NormalizePeriods(periods)
	if len(unknown) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown periods: "+strings.Join(unknown, ", "))
	}
	if len(out) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one period is required")
	}
	return out, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
