package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/middleware"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/response"
)

// actorFromContext builds the caller identity from the JWT claims.
func actorFromContext(c *gin.Context) models.Actor {
	return middleware.Claims(c).Actor()
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// pageParams reads page and limit query params.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

// bindJSON decodes the body into req, answering 400 on failure.
func bindJSON(c *gin.Context, req interface{}, message string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func search(c *gin.Context) string {
	return strings.TrimSpace(c.Query("search"))
}

// dateQuery parses an optional YYYY-MM-DD query param.
func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid "+key+" date")
	}
	return &parsed, nil
}
