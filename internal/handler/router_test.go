package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type tokenStub map[string][]string

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	roles, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: token, Roles: roles}, nil
}

type nopAudit struct{}

func (nopAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r.Group("/api/v1"), RouterDeps{
		Auth:        NewAuthHandler(&authServiceMock{}),
		Users:       NewUserHandler(&userServiceMock{}, roleServiceMock{}),
		Schedulings: NewSchedulingHandler(&schedulingServiceMock{}),
		Tokens: tokenStub{
			"admin":     {models.RoleAdmin},
			"professor": {models.RoleProfessor},
			"secretary": {models.RoleSecretary},
			"user":      {models.RoleUser},
		},
		Audit:  nopAudit{},
		Logger: zap.NewNop(),
	})
	return r
}

func call(r *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouterAuthRoutesArePublic(t *testing.T) {
	r := newRouter()
	req := jsonRequest(http.MethodPost, "/api/v1/auth/magic-link", `{"email":"ana@unifil.br"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRouterRequiresToken(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/schedulings", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/schedulings", "forged"))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/auth/me", "user"))
}

func TestRouterEnforcesPermissions(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/schedulings", "user"))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/schedulings/export", "user"))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/schedulings/export", "professor"))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/schedulings/export", "secretary"))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/users", "professor"))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/users", "admin"))
	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, "/api/v1/users/u2", "admin"))
}
