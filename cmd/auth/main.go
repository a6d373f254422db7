package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"finance-tracker/internal/config"
	"finance-tracker/internal/db"
	"finance-tracker/internal/email"
	apihttp "finance-tracker/internal/http"
	"finance-tracker/internal/notify"
	"finance-tracker/internal/repository"
	"finance-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	keys, activeKID, err := cfg.Keyring()
	if err != nil {
		logger.Fatal("signing keys", zap.Error(err))
	}
	jwtSvc, err := service.NewJWTService(keys, activeKID, cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("jwt service", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	if err := db.Migrate(ctx, pool, db.AuthSchema); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	var (
		resetTokens  service.ResetTokenStore
		resetLimiter service.RateLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			resetTokens = service.NewRedisResetTokenStore(redisClient)
			resetLimiter = service.NewRedisRateLimiter(redisClient, "auth:rl:forgot:", 10*time.Minute, 3)
		}
		cancel()
	}

	emailSender := email.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var notifier service.ApprovalNotifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		logger.Warn("kafka not configured, approval notifications disabled")
	}

	userRepo := repository.NewPgUserRepository(pool)
	hasher := service.NewPasswordHasher(cfg.BcryptCost)
	authSvc := service.NewAuthService(logger, userRepo, hasher, jwtSvc)
	registrationSvc := service.NewRegistrationService(logger, userRepo, hasher, notifier, cfg.AdminEmail)
	userSvc := service.NewUserService(logger, userRepo, hasher, service.UserServiceOptions{
		EmailSender:  emailSender,
		ResetTokens:  resetTokens,
		ResetLimiter: resetLimiter,
		ResetTTL:     cfg.ResetTokenTTL,
		ResetBaseURL: cfg.ResetBaseURL,
	})

	if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}

	authHandler := apihttp.NewAuthHandler(logger, authSvc, registrationSvc)
	userHandler := apihttp.NewUserHandler(logger, userSvc)
	router := apihttp.NewAuthRouter(logger, authHandler, userHandler, authSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting auth service", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
