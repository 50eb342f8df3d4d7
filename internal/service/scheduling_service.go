package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/hierarchy"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/repository"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/export"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type schedulingRepository interface {
	List(ctx context.Context, filter models.SchedulingFilter) ([]models.Scheduling, int, error)
	ListRows(ctx context.Context, filter models.SchedulingFilter) ([]models.SchedulingRow, error)
	FindByID(ctx context.Context, id string) (*models.Scheduling, error)
	CreateIfNoConflict(ctx context.Context, scheduling *models.Scheduling) error
	UpdateIfNoConflict(ctx context.Context, scheduling *models.Scheduling) error
	Delete(ctx context.Context, id string) error
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindSemester(ctx context.Context, id string) (*models.Semester, error)
}

type classLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type disciplineLookup interface {
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type directedCourses interface {
	DirectedCourseIDs(ctx context.Context, actor models.Actor) ([]string, error)
}

type notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// SchedulingRequest represents payload for creating or updating schedulings.
// Date is YYYY-MM-DD and times are HH:MM in the configured timezone.
type SchedulingRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Phone        string  `json:"phone" validate:"omitempty,max=30"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string  `json:"end_time" validate:"required,datetime=15:04"`
	Details      *string `json:"details" validate:"omitempty,max=2000"`
	CourseID     string  `json:"course_id" validate:"required,uuid"`
	SemesterID   string  `json:"semester_id" validate:"required,uuid"`
	DisciplineID *string `json:"discipline_id" validate:"omitempty,uuid"`
	ClassID      *string `json:"class_id" validate:"omitempty,uuid"`
}

// AvailabilityRequest asks whether a slot is free.
type AvailabilityRequest struct {
	Date         string `form:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string `form:"start_time" validate:"required,datetime=15:04"`
	EndTime      string `form:"end_time" validate:"required,datetime=15:04"`
	ClassID      string `form:"class_id" validate:"required,uuid"`
	DisciplineID string `form:"discipline_id" validate:"required,uuid"`
	ExcludeID    string `form:"exclude_id" validate:"omitempty,uuid"`
}

// Availability is the answer to an AvailabilityRequest.
type Availability struct {
	Available bool `json:"available"`
}

// SchedulingDeps groups the collaborators of SchedulingService.
type SchedulingDeps struct {
	Repo        schedulingRepository
	Guard       *ConflictGuard
	Courses     courseLookup
	Classes     classLookup
	Disciplines disciplineLookup
	Users       userLookup
	Directors   directedCourses
	Notifier    notifier
	Metrics     *MetricsService
	Location    *time.Location
}

// SchedulingService manages exam bookings under the conflict guard and
// the ownership rules.
type SchedulingService struct {
	deps      SchedulingDeps
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchedulingService constructs a SchedulingService.
func NewSchedulingService(deps SchedulingDeps, validate *validator.Validate, logger *zap.Logger) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &SchedulingService{deps: deps, validator: validate, logger: logger}
}

// List returns the schedulings visible to actor.
func (s *SchedulingService) List(ctx context.Context, actor models.Actor, filter models.SchedulingFilter) ([]models.Scheduling, *models.Pagination, error) {
	filter, err := s.scope(ctx, actor, filter)
	if err != nil {
		return nil, nil, err
	}
	items, total, err := s.deps.Repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list schedulings")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a scheduling the actor may see.
func (s *SchedulingService) Get(ctx context.Context, actor models.Actor, id string) (*models.Scheduling, error) {
	scheduling, err := s.deps.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "scheduling")
	}
	if err := s.authorize(ctx, actor, scheduling); err != nil {
		return nil, err
	}
	return scheduling, nil
}

// CheckAvailability reports whether the slot is free.
func (s *SchedulingService) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid availability query")
	}
	day, start, end, err := s.parseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	conflict, err := s.deps.Guard.Check(ctx, models.ConflictCandidate{
		Date:         day,
		StartTime:    start,
		EndTime:      end,
		ClassID:      req.ClassID,
		DisciplineID: req.DisciplineID,
		ExcludeID:    req.ExcludeID,
	})
	if err != nil {
		return nil, err
	}
	return &Availability{Available: !conflict}, nil
}

// Create books a new slot for actor.
func (s *SchedulingService) Create(ctx context.Context, actor models.Actor, req SchedulingRequest) (*models.Scheduling, error) {
	if actor.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	scheduling, labels, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	scheduling.UserID = actor.UserID

	if err := s.deps.Repo.CreateIfNoConflict(ctx, scheduling); err != nil {
		return nil, s.writeError(err, "create")
	}
	s.deps.Metrics.RecordSchedulingWrite("create")
	s.logger.Info("scheduling created", zap.String("scheduling_id", scheduling.ID), zap.String("user_id", actor.UserID))

	s.notify(ctx, actor.Email, models.TemplateSchedulingCreated, s.params(scheduling, labels, nil))
	return scheduling, nil
}

// Update edits a scheduling the actor may manage. The row itself is
// excluded from the conflict check.
func (s *SchedulingService) Update(ctx context.Context, actor models.Actor, id string, req SchedulingRequest) (*models.Scheduling, error) {
	existing, err := s.deps.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "scheduling")
	}
	if err := s.authorize(ctx, actor, existing); err != nil {
		return nil, err
	}

	scheduling, labels, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	scheduling.ID = existing.ID
	scheduling.UserID = existing.UserID
	scheduling.CreatedAt = existing.CreatedAt

	if err := s.deps.Repo.UpdateIfNoConflict(ctx, scheduling); err != nil {
		return nil, s.writeError(err, "update")
	}
	s.deps.Metrics.RecordSchedulingWrite("update")
	s.logger.Info("scheduling updated", zap.String("scheduling_id", id), zap.String("actor_id", actor.UserID))

	s.notify(ctx, s.ownerEmail(ctx, existing.UserID, actor), models.TemplateSchedulingUpdated, s.params(scheduling, labels, existing))
	return scheduling, nil
}

// Delete removes a scheduling the actor may manage.
func (s *SchedulingService) Delete(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.deps.Repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "scheduling")
	}
	if err := s.authorize(ctx, actor, existing); err != nil {
		return err
	}
	if err := s.deps.Repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete scheduling")
	}
	s.deps.Metrics.RecordSchedulingWrite("delete")
	s.logger.Info("scheduling deleted", zap.String("scheduling_id", id), zap.String("actor_id", actor.UserID))

	s.notify(ctx, s.ownerEmail(ctx, existing.UserID, actor), models.TemplateSchedulingDeleted, s.params(existing, s.labels(ctx, existing), nil))
	return nil
}

// Export renders the schedulings visible to actor as csv or pdf.
func (s *SchedulingService) Export(ctx context.Context, actor models.Actor, filter models.SchedulingFilter, format string) ([]byte, string, string, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, "", "", appErrors.Validation(err, err.Error())
	}
	filter, err = s.scope(ctx, actor, filter)
	if err != nil {
		return nil, "", "", err
	}
	rows, err := s.deps.Repo.ListRows(ctx, filter)
	if err != nil {
		return nil, "", "", appErrors.Internal(err, "failed to load schedulings")
	}

	dataset := export.Dataset{
		Title:   "Agendamentos de avaliações",
		Headers: []string{"Data", "Início", "Fim", "Avaliação", "Curso", "Semestre", "Disciplina", "Turma", "Responsável", "Telefone"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			row.Date.Format("02/01/2006"),
			row.StartTime.In(s.deps.Location).Format(clockLayout),
			row.EndTime.In(s.deps.Location).Format(clockLayout),
			row.Name,
			row.CourseName,
			row.SemesterName,
			deref(row.DisciplineName),
			deref(row.ClassName),
			row.UserName,
			row.Phone,
		})
	}

	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, "", "", appErrors.Internal(err, "failed to render export")
	}
	filename := fmt.Sprintf("agendamentos-%s.%s", time.Now().In(s.deps.Location).Format("20060102-1504"), renderer.Extension())
	return payload, filename, renderer.ContentType(), nil
}

// scope restricts filter to what actor may see.
func (s *SchedulingService) scope(ctx context.Context, actor models.Actor, filter models.SchedulingFilter) (models.SchedulingFilter, error) {
	if seesAllSchedulings(actor) {
		filter.Restricted = false
		return filter, nil
	}
	directed, err := s.directed(ctx, actor)
	if err != nil {
		return filter, err
	}
	filter.Restricted = true
	filter.OwnerID = actor.UserID
	filter.VisibleCourseIDs = directed
	return filter, nil
}

func (s *SchedulingService) authorize(ctx context.Context, actor models.Actor, scheduling *models.Scheduling) error {
	if actor.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	var directed []string
	if scheduling.UserID != actor.UserID && !seesAllSchedulings(actor) {
		var err error
		if directed, err = s.directed(ctx, actor); err != nil {
			return err
		}
	}
	if !CanManageScheduling(actor, *scheduling, directed) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot manage this scheduling")
	}
	return nil
}

func (s *SchedulingService) directed(ctx context.Context, actor models.Actor) ([]string, error) {
	if s.deps.Directors == nil || !actor.HasRole(models.RoleDirection) {
		return nil, nil
	}
	return s.deps.Directors.DirectedCourseIDs(ctx, actor)
}

// slotLabels carries display names for notifications.
type slotLabels struct {
	course     string
	discipline string
	class      string
}

// build validates req against the hierarchy and returns the scheduling to write.
func (s *SchedulingService) build(ctx context.Context, req SchedulingRequest) (*models.Scheduling, slotLabels, error) {
	var labels slotLabels
	if err := s.validator.Struct(req); err != nil {
		return nil, labels, appErrors.Validation(err, "invalid scheduling payload")
	}
	day, start, end, err := s.parseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, labels, err
	}

	course, err := s.deps.Courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, labels, lookupError(err, "course")
	}
	labels.course = course.Name

	semester, err := s.deps.Courses.FindSemester(ctx, req.SemesterID)
	if err != nil {
		return nil, labels, lookupError(err, "semester")
	}
	if semester.CourseID != course.ID {
		return nil, labels, appErrors.Clone(appErrors.ErrValidation, "semester does not belong to course")
	}

	classID := normalizeOptional(req.ClassID)
	if classID != nil {
		class, err := s.deps.Classes.FindByID(ctx, *classID)
		if err != nil {
			return nil, labels, lookupError(err, "class")
		}
		if class.CourseID != course.ID {
			return nil, labels, appErrors.Clone(appErrors.ErrValidation, "class does not belong to course")
		}
		if class.SemesterID != semester.ID {
			return nil, labels, appErrors.Clone(appErrors.ErrValidation, "class does not belong to semester")
		}
		labels.class = class.Name
	}

	disciplineID := normalizeOptional(req.DisciplineID)
	if disciplineID != nil {
		discipline, err := s.deps.Disciplines.FindByID(ctx, *disciplineID)
		if err != nil {
			return nil, labels, lookupError(err, "discipline")
		}
		if discipline.SemesterID != semester.ID {
			return nil, labels, appErrors.Clone(appErrors.ErrValidation, "discipline does not belong to semester")
		}
		if !hierarchy.PeriodsIntersect(discipline.DayPeriods, course.Periods) {
			return nil, labels, appErrors.Clone(appErrors.ErrValidation, "discipline is not offered in any period of the course")
		}
		labels.discipline = discipline.Name
	}

	return &models.Scheduling{
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Date:         day,
		StartTime:    start,
		EndTime:      end,
		Details:      normalizeOptional(req.Details),
		CourseID:     course.ID,
		SemesterID:   semester.ID,
		DisciplineID: disciplineID,
		ClassID:      classID,
	}, labels, nil
}

// parseSlot turns local date and clock strings into the stored calendar
// day (UTC midnight) and the start and end instants.
func (s *SchedulingService) parseSlot(date, startClock, endClock string) (time.Time, time.Time, time.Time, error) {
	loc := s.deps.Location
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Validation(err, "invalid date")
	}
	at := func(clock string) (time.Time, error) {
		t, err := time.Parse(clockLayout, clock)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	start, err := at(startClock)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Validation(err, "invalid start time")
	}
	end, err := at(endClock)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Validation(err, "invalid end time")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), start, end, nil
}

func (s *SchedulingService) writeError(err error, verb string) error {
	if errors.Is(err, repository.ErrSchedulingConflict) {
		s.deps.Metrics.RecordConflict()
		return appErrors.Clone(appErrors.ErrScheduleConflict, "")
	}
	return mutationError(err, verb, "scheduling")
}

func (s *SchedulingService) labels(ctx context.Context, sc *models.Scheduling) slotLabels {
	var labels slotLabels
	if course, err := s.deps.Courses.FindByID(ctx, sc.CourseID); err == nil {
		labels.course = course.Name
	}
	if sc.ClassID != nil {
		if class, err := s.deps.Classes.FindByID(ctx, *sc.ClassID); err == nil {
			labels.class = class.Name
		}
	}
	if sc.DisciplineID != nil {
		if discipline, err := s.deps.Disciplines.FindByID(ctx, *sc.DisciplineID); err == nil {
			labels.discipline = discipline.Name
		}
	}
	return labels
}

func (s *SchedulingService) params(sc *models.Scheduling, labels slotLabels, before *models.Scheduling) map[string]string {
	loc := s.deps.Location
	params := map[string]string{
		"name":       sc.Name,
		"date":       sc.Date.Format("02/01/2006"),
		"start":      sc.StartTime.In(loc).Format(clockLayout),
		"end":        sc.EndTime.In(loc).Format(clockLayout),
		"course":     labels.course,
		"discipline": labels.discipline,
		"class":      labels.class,
	}
	if before != nil {
		params["before_date"] = before.Date.Format("02/01/2006")
		params["before_start"] = before.StartTime.In(loc).Format(clockLayout)
		params["before_end"] = before.EndTime.In(loc).Format(clockLayout)
	}
	return params
}

func (s *SchedulingService) ownerEmail(ctx context.Context, ownerID string, actor models.Actor) string {
	if ownerID == actor.UserID || s.deps.Users == nil {
		return actor.Email
	}
	owner, err := s.deps.Users.FindByID(ctx, ownerID)
	if err != nil {
		s.logger.Warn("scheduling owner lookup failed", zap.String("user_id", ownerID), zap.Error(err))
		return ""
	}
	return owner.Email
}

// notify never fails the calling mutation.
func (s *SchedulingService) notify(ctx context.Context, to, template string, params map[string]string) {
	if s.deps.Notifier == nil || to == "" {
		return
	}
	s.deps.Notifier.Notify(ctx, models.Notification{Template: template, To: to, Params: params})
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
