package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type userServiceMock struct {
	lastFilter models.UserFilter
	lastRoles  []string
	lastActor  models.Actor
	deleteErr  error
}

func (m *userServiceMock) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.User{{ID: "u1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *userServiceMock) Get(ctx context.Context, id string) (*models.User, error) {
	if id == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &models.User{ID: id}, nil
}

func (m *userServiceMock) SetRoles(ctx context.Context, actor models.Actor, id string, req service.SetRolesRequest, meta models.RequestMeta) (*models.User, error) {
	m.lastActor = actor
	m.lastRoles = req.Roles
	return &models.User{ID: id, Roles: req.Roles}, nil
}

func (m *userServiceMock) Delete(ctx context.Context, actor models.Actor, id string, meta models.RequestMeta) error {
	m.lastActor = actor
	return m.deleteErr
}

type roleServiceMock struct{}

func (roleServiceMock) List(ctx context.Context) ([]models.Role, error) {
	return []models.Role{{ID: "r1", Name: models.RoleAdmin, Permissions: models.AllPermissions()}}, nil
}

func TestUserHandlerListFilters(t *testing.T) {
	svc := &userServiceMock{}
	h := NewUserHandler(svc, roleServiceMock{})
	c, w := schedulingContext(http.MethodGet, "/users?role=admin&search=%20ana%20", "")

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", svc.lastFilter.Role)
	assert.Equal(t, "ana", svc.lastFilter.Search)
}

func TestUserHandlerGetNotFound(t *testing.T) {
	h := NewUserHandler(&userServiceMock{}, roleServiceMock{})
	c, w := schedulingContext(http.MethodGet, "/users/missing", "")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandlerSetRoles(t *testing.T) {
	svc := &userServiceMock{}
	h := NewUserHandler(svc, roleServiceMock{})
	c, w := schedulingContext(http.MethodPut, "/users/u2/roles", `{"roles":["direcao","professor"]}`)
	c.Params = gin.Params{{Key: "id", Value: "u2"}}

	h.SetRoles(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"direcao", "professor"}, svc.lastRoles)
	assert.Equal(t, "owner", svc.lastActor.UserID)
}

func TestUserHandlerDeleteLastAdmin(t *testing.T) {
	h := NewUserHandler(&userServiceMock{deleteErr: appErrors.Clone(appErrors.ErrLastAdmin, "")}, roleServiceMock{})
	c, w := schedulingContext(http.MethodDelete, "/users/u1", "")
	c.Params = gin.Params{{Key: "id", Value: "u1"}}

	h.Delete(c)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, appErrors.ErrLastAdmin.Code, body["error"].(map[string]interface{})["code"])
}

func TestUserHandlerInternalErrorIsGeneric(t *testing.T) {
	h := NewUserHandler(&userServiceMock{deleteErr: appErrors.Internal(assert.AnError, "failed to delete user")}, roleServiceMock{})
	c, w := schedulingContext(http.MethodDelete, "/users/u1", "")
	c.Params = gin.Params{{Key: "id", Value: "u1"}}

	h.Delete(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, appErrors.ErrInternal.Message, body["error"].(map[string]interface{})["message"])
	assert.Len(t, c.Errors, 1)
}

func TestUserHandlerRoles(t *testing.T) {
	h := NewUserHandler(&userServiceMock{}, roleServiceMock{})
	c, w := schedulingContext(http.MethodGet, "/roles", "")

	h.Roles(c)
	require.Equal(t, http.StatusOK, w.Code)
}
