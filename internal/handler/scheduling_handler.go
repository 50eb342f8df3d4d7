package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/response"
)

type schedulingService interface {
	List(ctx context.Context, actor models.Actor, filter models.SchedulingFilter) ([]models.Scheduling, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Scheduling, error)
	CheckAvailability(ctx context.Context, req service.AvailabilityRequest) (*service.Availability, error)
	Create(ctx context.Context, actor models.Actor, req service.SchedulingRequest) (*models.Scheduling, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.SchedulingRequest) (*models.Scheduling, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Export(ctx context.Context, actor models.Actor, filter models.SchedulingFilter, format string) ([]byte, string, string, error)
}

// SchedulingHandler exposes evaluation scheduling endpoints.
type SchedulingHandler struct {
	schedulings schedulingService
}

// NewSchedulingHandler constructs a SchedulingHandler.
func NewSchedulingHandler(schedulings schedulingService) *SchedulingHandler {
	return &SchedulingHandler{schedulings: schedulings}
}

// List godoc
// @Summary List schedulings visible to the caller
// @Tags Schedulings
// @Produce json
// @Param course_id query string false "Course filter"
// @Param class_id query string false "Class filter"
// @Param discipline_id query string false "Discipline filter"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedulings [get]
func (h *SchedulingHandler) List(c *gin.Context) {
	filter, ok := schedulingFilter(c)
	if !ok {
		return
	}
	items, pagination, err := h.schedulings.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get scheduling
// @Tags Schedulings
// @Produce json
// @Param id path string true "Scheduling ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedulings/{id} [get]
func (h *SchedulingHandler) Get(c *gin.Context) {
	item, err := h.schedulings.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Availability godoc
// @Summary Check whether a slot is free for a class and discipline
// @Tags Schedulings
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start_time query string true "Start (HH:MM)"
// @Param end_time query string true "End (HH:MM)"
// @Param class_id query string true "Class ID"
// @Param discipline_id query string true "Discipline ID"
// @Param exclude_id query string false "Scheduling being edited"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedulings/availability [get]
func (h *SchedulingHandler) Availability(c *gin.Context) {
	var req service.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid availability query"))
		return
	}
	result, err := h.schedulings.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Book an evaluation slot
// @Tags Schedulings
// @Accept json
// @Produce json
// @Param payload body service.SchedulingRequest true "Scheduling payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /schedulings [post]
func (h *SchedulingHandler) Create(c *gin.Context) {
	var req service.SchedulingRequest
	if !bindJSON(c, &req, "invalid scheduling payload") {
		return
	}
	item, err := h.schedulings.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update scheduling
// @Tags Schedulings
// @Accept json
// @Produce json
// @Param id path string true "Scheduling ID"
// @Param payload body service.SchedulingRequest true "Scheduling payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /schedulings/{id} [put]
func (h *SchedulingHandler) Update(c *gin.Context) {
	var req service.SchedulingRequest
	if !bindJSON(c, &req, "invalid scheduling payload") {
		return
	}
	item, err := h.schedulings.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete scheduling
// @Tags Schedulings
// @Param id path string true "Scheduling ID"
// @Success 204
// @Security BearerAuth
// @Router /schedulings/{id} [delete]
func (h *SchedulingHandler) Delete(c *gin.Context) {
	if err := h.schedulings.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export schedulings
// @Tags Schedulings
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param course_id query string false "Course filter"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /schedulings/export [get]
func (h *SchedulingHandler) Export(c *gin.Context) {
	filter, ok := schedulingFilter(c)
	if !ok {
		return
	}
	payload, filename, contentType, err := h.schedulings.Export(c.Request.Context(), actorFromContext(c), filter, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, filename, contentType, payload)
}

func schedulingFilter(c *gin.Context) (models.SchedulingFilter, bool) {
	from, err := dateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return models.SchedulingFilter{}, false
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return models.SchedulingFilter{}, false
	}
	page, size := pageParams(c)
	return models.SchedulingFilter{
		CourseID:     c.Query("course_id"),
		ClassID:      c.Query("class_id"),
		DisciplineID: c.Query("discipline_id"),
		From:         from,
		To:           to,
		Page:         page,
		PageSize:     size,
	}, true
}
