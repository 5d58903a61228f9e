package auth

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsepoll/backend/internal/session"
	"github.com/pulsepoll/backend/pkg/response"
)

// LoginRequest is the body for POST /auth/moderator.
type LoginRequest struct {
	Passcode string `json:"passcode" binding:"required"`
}

// Handler exchanges the moderator passcode for a role token.
type Handler struct {
	jwt      *JWTService
	passcode string
	logger   *zap.Logger
}

// NewHandler creates the auth handler.
func NewHandler(jwt *JWTService, passcode string, logger *zap.Logger) *Handler {
	return &Handler{jwt: jwt, passcode: passcode, logger: logger}
}

// ModeratorLogin handles POST /auth/moderator.
func (h *Handler) ModeratorLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "passcode required")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Passcode), []byte(h.passcode)) != 1 {
		h.logger.Warn("moderator login rejected", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid passcode")
		return
	}
	token, err := h.jwt.Generate(session.RoleModerator)
	if err != nil {
		response.Internal(c, "failed to issue token")
		return
	}
	response.OK(c, gin.H{"token": token, "role": session.RoleModerator})
}
