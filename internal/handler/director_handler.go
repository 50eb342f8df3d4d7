package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/response"
)

// DirectorHandler exposes director endpoints.
type DirectorHandler struct {
	directors *service.DirectorService
}

// NewDirectorHandler constructs a DirectorHandler.
func NewDirectorHandler(directors *service.DirectorService) *DirectorHandler {
	return &DirectorHandler{directors: directors}
}

// List godoc
// @Summary List directors
// @Tags Directors
// @Produce json
// @Param search query string false "Search by name or email"
// @Param status query string false "ACTIVE or INACTIVE"
// @Param course_id query string false "Course filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directors [get]
func (h *DirectorHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	items, pagination, err := h.directors.List(c.Request.Context(), models.DirectorFilter{
		Search:   search(c),
		Status:   c.Query("status"),
		CourseID: c.Query("course_id"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get director with directed courses
// @Tags Directors
// @Produce json
// @Param id path string true "Director ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directors/{id} [get]
func (h *DirectorHandler) Get(c *gin.Context) {
	item, err := h.directors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create director
// @Tags Directors
// @Accept json
// @Produce json
// @Param payload body service.DirectorRequest true "Director payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /directors [post]
func (h *DirectorHandler) Create(c *gin.Context) {
	var req service.DirectorRequest
	if !bindJSON(c, &req, "invalid director payload") {
		return
	}
	item, err := h.directors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update director and course links
// @Tags Directors
// @Accept json
// @Produce json
// @Param id path string true "Director ID"
// @Param payload body service.DirectorRequest true "Director payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directors/{id} [put]
func (h *DirectorHandler) Update(c *gin.Context) {
	var req service.DirectorRequest
	if !bindJSON(c, &req, "invalid director payload") {
		return
	}
	item, err := h.directors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete director
// @Tags Directors
// @Param id path string true "Director ID"
// @Success 204
// @Security BearerAuth
// @Router /directors/{id} [delete]
func (h *DirectorHandler) Delete(c *gin.Context) {
	if err := h.directors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
