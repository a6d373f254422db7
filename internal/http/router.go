package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewAuthRouter configura el router del servicio de autenticación.
func NewAuthRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	userH *UserHandler,
	verifier IdentityVerifier,
) *gin.Engine {
	r := newEngine(logger)

	r.GET("/health", Health("Auth service"))
	r.POST("/login", authH.Login)
	r.GET("/verify-token", authH.VerifyToken)
	r.POST("/signup", authH.Signup)
	r.POST("/forgot-password", userH.ForgotPassword)
	r.POST("/reset-password", userH.ResetPassword)

	authed := r.Group("", BearerAuthMiddleware(logger, verifier))
	authed.PUT("/user/password", userH.ChangePassword)

	admin := authed.Group("", RequireAdmin())
	admin.GET("/pending-users", authH.PendingUsers)
	admin.POST("/approve-user", authH.ApproveUser)
	admin.DELETE("/users/:id", userH.DeleteUser)

	return r
}

// NewLedgerRouter configura el router del servicio de gastos. Todas las rutas
// salvo /health resuelven la identidad a traves del verificador recibido.
func NewLedgerRouter(
	logger *zap.Logger,
	ledgerH *LedgerHandler,
	verifier IdentityVerifier,
) *gin.Engine {
	r := newEngine(logger)

	r.GET("/health", Health("Ledger service"))

	authed := r.Group("", BearerAuthMiddleware(logger, verifier))
	authed.GET("/expenses", ledgerH.ListExpenses)
	authed.POST("/expense", ledgerH.CreateExpense)
	authed.DELETE("/expenses/:id", ledgerH.DeleteExpense)
	authed.GET("/categories", ledgerH.ListCategories)
	authed.POST("/categories", ledgerH.CreateCategory)
	authed.DELETE("/categories/:name", ledgerH.DeleteCategory)

	return r
}

func newEngine(logger *zap.Logger) *gin.Engine {
	r := gin.New()
	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())
	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
