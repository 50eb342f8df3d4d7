package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.User, error)
	SetRoles(ctx context.Context, actor models.Actor, id string, req service.SetRolesRequest, meta models.RequestMeta) (*models.User, error)
	Delete(ctx context.Context, actor models.Actor, id string, meta models.RequestMeta) error
}

type roleService interface {
	List(ctx context.Context) ([]models.Role, error)
}

// UserHandler manages user accounts and their roles.
type UserHandler struct {
	users userService
	roles roleService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users userService, roles roleService) *UserHandler {
	return &UserHandler{users: users, roles: roles}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param role query string false "Role filter"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	users, pagination, err := h.users.List(c.Request.Context(), models.UserFilter{
		Role:     c.Query("role"),
		Search:   search(c),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// SetRoles godoc
// @Summary Replace the roles of a user
// @Description Removing the admin role from the last admin is rejected with 409.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.SetRolesRequest true "Roles"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/roles [put]
func (h *UserHandler) SetRoles(c *gin.Context) {
	var req service.SetRolesRequest
	if !bindJSON(c, &req, "invalid roles payload") {
		return
	}
	user, err := h.users.SetRoles(c.Request.Context(), actorFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete user
// @Description Deleting the last admin is rejected with 409.
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roles godoc
// @Summary List roles with their permissions
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /roles [get]
func (h *UserHandler) Roles(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}
