package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finance-tracker/internal/service"
)

// UserHandler mantiene dependencias para endpoints de gestion de contraseñas.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

// ChangePassword maneja PUT /user/password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid change password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	caller, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}

	if err := h.userServ.ChangePassword(c.Request.Context(), caller, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"detail": "Cannot change another user's password"})
		case errors.Is(err, service.ErrEmptyPassword):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Password must not be empty"})
		case errors.Is(err, service.ErrUnknownSubject):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
		default:
			h.logger.Error("change password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not update password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// ForgotPassword maneja POST /forgot-password.
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	if err := h.userServ.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "Email not found"})
		case errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid email"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"detail": "too many requests"})
		default:
			h.logger.Error("forgot password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not send reset link"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset link sent to your email"})
}

// ResetPassword maneja POST /reset-password.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	if err := h.userServ.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid or expired reset token"})
		case errors.Is(err, service.ErrEmptyPassword):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Password must not be empty"})
		default:
			h.logger.Error("reset password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not reset password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// DeleteUser maneja DELETE /users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	caller, _ := GetIdentity(c)
	if err := h.userServ.DeleteUser(c.Request.Context(), caller, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"detail": "Admin access required"})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		default:
			h.logger.Error("delete user failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not delete user"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
