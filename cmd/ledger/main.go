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
	"go.uber.org/zap"

	"finance-tracker/internal/config"
	"finance-tracker/internal/db"
	apihttp "finance-tracker/internal/http"
	"finance-tracker/internal/notify"
	"finance-tracker/internal/relay"
	"finance-tracker/internal/repository"
	"finance-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadLedgerConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	if err := db.Migrate(ctx, pool, db.LedgerSchema); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	expenseRepo := repository.NewPgExpenseRepository(pool)
	categoryRepo := repository.NewPgCategoryRepository(pool)
	ledgerSvc := service.NewLedgerService(logger, expenseRepo, categoryRepo, cfg.DefaultCategories)

	if len(cfg.KafkaBrokers) > 0 {
		consumer := notify.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, ledgerSvc, logger)
		defer consumer.Close()
		go func() {
			if err := consumer.Listen(ctx); err != nil {
				logger.Error("approval consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("kafka not configured, profile materialization disabled")
	}

	identityRelay := relay.NewClient(cfg.AuthServiceURL, cfg.AuthVerifyTimeout, logger)
	ledgerHandler := apihttp.NewLedgerHandler(logger, ledgerSvc)
	router := apihttp.NewLedgerRouter(logger, ledgerHandler, identityRelay)

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

	logger.Info("starting ledger service",
		zap.String("port", cfg.HTTPPort),
		zap.String("auth_service", cfg.AuthServiceURL),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
