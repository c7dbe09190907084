// internal/handlers/auth/auth_handler.go
package auth

import (
	"context"
	"net/http"
	"time"

	"fleetcare-service/internal/domain/auth"
	"fleetcare-service/internal/middleware"
	"fleetcare-service/internal/pkg/response"
	authUsecase "fleetcare-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionDisconnector closes the sockets opened with a session.
type SessionDisconnector interface {
	DisconnectSession(userID, sessionID, reason string)
}

// Service is implemented by auth.AuthService.
type Service interface {
	SignUp(ctx context.Context, req *auth.SignUpRequest) (*auth.SessionResponse, error)
	SignIn(ctx context.Context, req *auth.SignInRequest) (*auth.SessionResponse, error)
	SignOut(ctx context.Context, userID, jti string, expiresAt time.Time) error
	CurrentSession(ctx context.Context, userID, jti string) (*auth.CurrentSession, error)
	ActiveSessions(ctx context.Context, userID string) ([]*auth.CurrentSession, error)
}

var _ Service = (*authUsecase.AuthService)(nil)

type AuthHandler struct {
	authService  Service
	disconnector SessionDisconnector
	logger       *zap.Logger
}

func NewAuthHandler(authService Service, disconnector SessionDisconnector, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		disconnector: disconnector,
		logger:       logger,
	}
}

// ========== Sign up ==========

// SignUp handles account creation (public endpoint)
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req auth.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	resp, err := h.authService.SignUp(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("sign up failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		response.FromError(c, "sign up failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "account created", resp)
}

// ========== Sign in ==========

// SignIn handles email and password sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req auth.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	resp, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("sign in failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.FromError(c, "sign in failed", err)
		return
	}

	response.Success(c, http.StatusOK, "signed in", resp)
}

// ========== Sign out ==========

// SignOut ends the current session (requires auth)
func (h *AuthHandler) SignOut(c *gin.Context) {
	caller := middleware.MustGetAuth(c)

	if err := h.authService.SignOut(c.Request.Context(), caller.UserID, caller.SessionID, caller.ExpiresAt); err != nil {
		h.logger.Error("sign out failed",
			zap.String("user_id", caller.UserID),
			zap.Error(err),
		)
		response.FromError(c, "sign out failed", err)
		return
	}

	if h.disconnector != nil {
		h.disconnector.DisconnectSession(caller.UserID, caller.SessionID, "signed_out")
	}

	response.Success(c, http.StatusOK, "signed out", nil)
}

// ========== Session ==========

// GetSession returns the session the request was made with
func (h *AuthHandler) GetSession(c *gin.Context) {
	caller := middleware.MustGetAuth(c)

	current, err := h.authService.CurrentSession(c.Request.Context(), caller.UserID, caller.SessionID)
	if err != nil {
		response.FromError(c, "failed to load session", err)
		return
	}

	response.Success(c, http.StatusOK, "session retrieved", current)
}

// ListSessions returns every live session of the caller
func (h *AuthHandler) ListSessions(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	sessions, err := h.authService.ActiveSessions(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, "failed to list sessions", err)
		return
	}

	response.Success(c, http.StatusOK, "sessions retrieved", sessions)
}
