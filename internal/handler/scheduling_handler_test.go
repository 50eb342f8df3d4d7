package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/middleware"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

type schedulingServiceMock struct {
	lastActor   models.Actor
	lastFilter  models.SchedulingFilter
	lastFormat  string
	lastRequest service.SchedulingRequest
	lastAvail   service.AvailabilityRequest
	createErr   error
	deleteErr   error
	available   bool
}

func (m *schedulingServiceMock) List(ctx context.Context, actor models.Actor, filter models.SchedulingFilter) ([]models.Scheduling, *models.Pagination, error) {
	m.lastActor = actor
	m.lastFilter = filter
	return []models.Scheduling{{ID: "s1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *schedulingServiceMock) Get(ctx context.Context, actor models.Actor, id string) (*models.Scheduling, error) {
	return &models.Scheduling{ID: id}, nil
}

func (m *schedulingServiceMock) CheckAvailability(ctx context.Context, req service.AvailabilityRequest) (*service.Availability, error) {
	m.lastAvail = req
	return &service.Availability{Available: m.available}, nil
}

func (m *schedulingServiceMock) Create(ctx context.Context, actor models.Actor, req service.SchedulingRequest) (*models.Scheduling, error) {
	m.lastActor = actor
	m.lastRequest = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Scheduling{ID: "new", Name: req.Name}, nil
}

func (m *schedulingServiceMock) Update(ctx context.Context, actor models.Actor, id string, req service.SchedulingRequest) (*models.Scheduling, error) {
	return &models.Scheduling{ID: id, Name: req.Name}, nil
}

func (m *schedulingServiceMock) Delete(ctx context.Context, actor models.Actor, id string) error {
	m.lastActor = actor
	return m.deleteErr
}

func (m *schedulingServiceMock) Export(ctx context.Context, actor models.Actor, filter models.SchedulingFilter, format string) ([]byte, string, string, error) {
	m.lastFormat = format
	if format != "csv" && format != "pdf" {
		return nil, "", "", appErrors.Validation(nil, "unsupported export format")
	}
	return []byte("Data;Início\n"), "agendamentos." + format, "text/csv; charset=utf-8", nil
}

func schedulingContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body != "" {
		c.Request = jsonRequest(method, target, body)
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "owner", Email: "owner@unifil.br", Roles: []string{models.RoleProfessor}})
	return c, w
}

func TestSchedulingHandlerListParsesFilters(t *testing.T) {
	svc := &schedulingServiceMock{}
	h := NewSchedulingHandler(svc)
	c, w := schedulingContext(http.MethodGet, "/schedulings?course_id=c1&class_id=k1&from=2024-05-01&to=2024-05-31&page=2&limit=5", "")

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner", svc.lastActor.UserID)
	assert.Equal(t, "c1", svc.lastFilter.CourseID)
	assert.Equal(t, "k1", svc.lastFilter.ClassID)
	require.NotNil(t, svc.lastFilter.From)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *svc.lastFilter.From)
	assert.Equal(t, 2, svc.lastFilter.Page)
	assert.Equal(t, 5, svc.lastFilter.PageSize)
	body := decodeEnvelope(t, w)
	assert.NotNil(t, body["pagination"])
}

func TestSchedulingHandlerListRejectsBadDate(t *testing.T) {
	h := NewSchedulingHandler(&schedulingServiceMock{})
	c, w := schedulingContext(http.MethodGet, "/schedulings?from=05/01/2024", "")

	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulingHandlerCreateConflict(t *testing.T) {
	svc := &schedulingServiceMock{createErr: appErrors.Clone(appErrors.ErrScheduleConflict, "")}
	h := NewSchedulingHandler(svc)
	c, w := schedulingContext(http.MethodPost, "/schedulings", `{"name":"Prova 1","date":"2024-05-10","start_time":"10:15","end_time":"10:45","course_id":"c1","semester_id":"s1"}`)

	h.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "10:15", svc.lastRequest.StartTime)
	body := decodeEnvelope(t, w)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, errBody["code"])
}

func TestSchedulingHandlerCreated(t *testing.T) {
	h := NewSchedulingHandler(&schedulingServiceMock{})
	c, w := schedulingContext(http.MethodPost, "/schedulings", `{"name":"Prova 1"}`)

	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSchedulingHandlerDeleteForbidden(t *testing.T) {
	h := NewSchedulingHandler(&schedulingServiceMock{deleteErr: appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this scheduling")})
	c, w := schedulingContext(http.MethodDelete, "/schedulings/s1", "")
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.Delete(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSchedulingHandlerAvailabilityBindsQuery(t *testing.T) {
	svc := &schedulingServiceMock{available: true}
	h := NewSchedulingHandler(svc)
	c, w := schedulingContext(http.MethodGet, "/schedulings/availability?date=2024-05-10&start_time=10:30&end_time=11:00&class_id=k1&discipline_id=d1", "")

	h.Availability(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10:30", svc.lastAvail.StartTime)
	assert.Equal(t, "d1", svc.lastAvail.DisciplineID)
	body := decodeEnvelope(t, w)
	assert.Equal(t, true, body["data"].(map[string]interface{})["available"])
}

func TestSchedulingHandlerExport(t *testing.T) {
	svc := &schedulingServiceMock{}
	h := NewSchedulingHandler(svc)
	c, w := schedulingContext(http.MethodGet, "/schedulings/export", "")

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.lastFormat)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "agendamentos.csv")
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestSchedulingHandlerExportUnknownFormat(t *testing.T) {
	h := NewSchedulingHandler(&schedulingServiceMock{})
	c, w := schedulingContext(http.MethodGet, "/schedulings/export?format=xlsx", "")

	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
