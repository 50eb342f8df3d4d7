package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/response"
)

// DisciplineHandler exposes discipline endpoints.
type DisciplineHandler struct {
	disciplines *service.DisciplineService
}

// NewDisciplineHandler constructs a DisciplineHandler.
func NewDisciplineHandler(disciplines *service.DisciplineService) *DisciplineHandler {
	return &DisciplineHandler{disciplines: disciplines}
}

// List godoc
// @Summary List disciplines
// @Tags Disciplines
// @Produce json
// @Param semester_id query string false "Semester filter"
// @Param course_id query string false "Course filter"
// @Param teacher_id query string false "Teacher filter"
// @Param search query string false "Search by name"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /disciplines [get]
func (h *DisciplineHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	items, pagination, err := h.disciplines.List(c.Request.Context(), models.DisciplineFilter{
		SemesterID: c.Query("semester_id"),
		CourseID:   c.Query("course_id"),
		TeacherID:  c.Query("teacher_id"),
		Search:     search(c),
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get discipline
// @Tags Disciplines
// @Produce json
// @Param id path string true "Discipline ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /disciplines/{id} [get]
func (h *DisciplineHandler) Get(c *gin.Context) {
	item, err := h.disciplines.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create discipline
// @Tags Disciplines
// @Accept json
// @Produce json
// @Param payload body service.DisciplineRequest true "Discipline payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /disciplines [post]
func (h *DisciplineHandler) Create(c *gin.Context) {
	var req service.DisciplineRequest
	if !bindJSON(c, &req, "invalid discipline payload") {
		return
	}
	item, err := h.disciplines.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update discipline
// @Tags Disciplines
// @Accept json
// @Produce json
// @Param id path string true "Discipline ID"
// @Param payload body service.DisciplineRequest true "Discipline payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /disciplines/{id} [put]
func (h *DisciplineHandler) Update(c *gin.Context) {
	var req service.DisciplineRequest
	if !bindJSON(c, &req, "invalid discipline payload") {
		return
	}
	item, err := h.disciplines.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete discipline with its schedulings and links
// @Tags Disciplines
// @Param id path string true "Discipline ID"
// @Success 204
// @Security BearerAuth
// @Router /disciplines/{id} [delete]
func (h *DisciplineHandler) Delete(c *gin.Context) {
	if err := h.disciplines.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
