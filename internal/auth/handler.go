package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/pkg/response"
)

// Users looks up admin accounts (satisfied by Repository).
type Users interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token     string            `json:"token"`
	ExpiresIn int64             `json:"expires_in"`
	User      models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  Users
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users Users, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("login lookup failed", zap.Error(err))
			response.Internal(c, "login unavailable")
			return
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !CheckPassword(req.Password, user.Password) {
		h.logger.Warn("login rejected", zap.String("email", user.Email), zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, ExpiresIn: int64(h.jwt.TTL().Seconds()), User: user.ToPublic()})
}

