package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finance-tracker/internal/service"
)

// AuthHandler mantiene dependencias para login, verificacion y aprobaciones.
type AuthHandler struct {
	logger       *zap.Logger
	authServ     *service.AuthService
	registration *service.RegistrationService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, registration *service.RegistrationService) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		authServ:     authServ,
		registration: registration,
	}
}

// Login maneja POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	tokens, identity, err := h.authServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.logger.Info("login rejected", zap.String("reason", "invalid_credentials"))
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		case errors.Is(err, service.ErrAccountDeleted):
			h.logger.Info("login rejected", zap.String("reason", "account_deleted"), zap.String("email", req.Email))
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Account has been deleted"})
		case errors.Is(err, service.ErrAccountPendingApproval):
			h.logger.Info("login rejected", zap.String("reason", "pending_approval"), zap.String("email", req.Email))
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Account pending admin approval"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not login"})
		}
		return
	}

	h.logger.Info("login succeeded", zap.String("user_id", identity.UserID))
	c.JSON(http.StatusOK, tokens)
}

// VerifyToken maneja GET /verify-token. Es el endpoint de confianza que usan
// los demas servicios para resolver identidades.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	identity, err := h.authServ.Verify(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate token"})
		case errors.Is(err, service.ErrUnknownSubject):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
		default:
			h.logger.Error("verify token failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not verify token"})
		}
		return
	}

	c.JSON(http.StatusOK, identity)
}

// Signup maneja POST /signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	if _, err := h.registration.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
		case errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrEmptyPassword):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		default:
			h.logger.Error("signup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not sign up"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Signup successful, pending admin approval"})
}

// PendingUsers maneja GET /pending-users.
func (h *AuthHandler) PendingUsers(c *gin.Context) {
	caller, _ := GetIdentity(c)
	pending, err := h.registration.ListPending(c.Request.Context(), caller)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Admin access required"})
			return
		}
		h.logger.Error("list pending users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not list pending users"})
		return
	}
	c.JSON(http.StatusOK, pending)
}

// ApproveUser maneja POST /approve-user.
func (h *AuthHandler) ApproveUser(c *gin.Context) {
	var req struct {
		UserID  string `json:"userId" binding:"required"`
		Approve *bool  `json:"approve" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid approve request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	caller, _ := GetIdentity(c)
	approve := *req.Approve
	if err := h.registration.Decide(c.Request.Context(), caller, req.UserID, approve); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"detail": "Admin access required"})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "Pending user not found"})
		default:
			h.logger.Error("approve user failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not process approval"})
		}
		return
	}

	message := "User rejected"
	if approve {
		message = "User approved"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Health maneja GET /health.
func Health(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": name + " is up"})
	}
}
