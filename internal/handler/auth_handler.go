package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/response"
)

type authService interface {
	RequestMagicLink(ctx context.Context, req models.MagicLinkRequest) error
	VerifyMagicLink(ctx context.Context, req models.VerifyMagicLinkRequest, meta models.RequestMeta) (*models.AuthResponse, error)
	SignInWithGoogle(ctx context.Context, req models.GoogleSignInRequest, meta models.RequestMeta) (*models.AuthResponse, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// RequestMagicLink godoc
// @Summary Request an email sign-in link
// @Description Sends a one-time link valid for 15 minutes
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.MagicLinkRequest true "Magic link payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/magic-link [post]
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req models.MagicLinkRequest
	if !bindJSON(c, &req, "invalid magic link payload") {
		return
	}
	if err := h.service.RequestMagicLink(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"sent": true}, nil)
}

// VerifyMagicLink godoc
// @Summary Complete an email sign-in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.VerifyMagicLinkRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/magic-link/verify [post]
func (h *AuthHandler) VerifyMagicLink(c *gin.Context) {
	var req models.VerifyMagicLinkRequest
	if !bindJSON(c, &req, "invalid verification payload") {
		return
	}
	res, err := h.service.VerifyMagicLink(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Google godoc
// @Summary Sign in with a Google ID token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.GoogleSignInRequest true "Google payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/google [post]
func (h *AuthHandler) Google(c *gin.Context) {
	var req models.GoogleSignInRequest
	if !bindJSON(c, &req, "invalid google sign-in payload") {
		return
	}
	res, err := h.service.SignInWithGoogle(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), actorFromContext(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
