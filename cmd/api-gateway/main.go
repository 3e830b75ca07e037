package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-finance-api/api/swagger"
	"github.com/noah-isme/sma-finance-api/internal/handler"
	"github.com/noah-isme/sma-finance-api/internal/ledger"
	"github.com/noah-isme/sma-finance-api/internal/middleware"
	"github.com/noah-isme/sma-finance-api/internal/repository"
	"github.com/noah-isme/sma-finance-api/internal/service"
	"github.com/noah-isme/sma-finance-api/pkg/cache"
	"github.com/noah-isme/sma-finance-api/pkg/config"
	"github.com/noah-isme/sma-finance-api/pkg/database"
	"github.com/noah-isme/sma-finance-api/pkg/export"
	"github.com/noah-isme/sma-finance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-finance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-finance-api/pkg/middleware/requestid"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = 5 * time.Minute
)

// @title SMA Finance API
// @version 0.1.0
// @description Tuition payment allocation and reconciliation for school cashiers
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Payments.DraftStore == config.DraftStoreRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	guard := service.NewCommitGuard()

	snapshots := repository.NewSnapshotRepository(db)
	drafts := repository.NewDraftRepository(redisClient, cfg.Payments.DraftTTL, logr)
	defer drafts.Close() //nolint:errcheck

	ledgerClient := ledger.NewClient(ledger.Config{
		BaseURL: cfg.Ledger.BaseURL,
		Token:   cfg.Ledger.Token,
		Timeout: cfg.Ledger.Timeout,
		Logger:  logr,
	})

	var journal *service.CommitJournalService
	if cfg.Journal.Enabled {
		journalRepo := repository.NewCommitJournalRepository(db)
		if err := journalRepo.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare commit journal", zap.Error(err))
		}
		journal = service.NewCommitJournalService(journalRepo, service.CommitJournalConfig{
			Workers:    cfg.Journal.Workers,
			MaxRetries: cfg.Journal.Retries,
			RetryDelay: cfg.Journal.RetryDelay,
		}, logr)
		journal.Start(ctx)
		defer journal.Stop()
	}

	opts := service.PaymentOptions{
		DefaultMethodID:    cfg.Payments.DefaultMethodID,
		RequireExactChange: cfg.Payments.RequireExactChange,
	}
	financeSvc := service.NewFinanceService(snapshots, export.NewCSVExporter(export.WithBOM()), metrics, logr)
	draftSvc := service.NewPaymentDraftService(drafts, financeSvc, guard, opts, validate, logr)
	commitSvc := service.NewPaymentCommitService(drafts, financeSvc, ledgerClient, journal, guard, metrics, opts, validate, logr)

	financeHandler := handler.NewFinanceHandler(financeSvc)
	draftHandler := handler.NewPaymentDraftHandler(draftSvc, commitSvc, journal)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", readiness(db, redisClient))
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Snapshot)

	students := api.Group("/students/:id")
	students.GET("/financial-summary", financeHandler.Summary)
	students.GET("/recovery", financeHandler.Recovery)

	paymentDrafts := api.Group("/payment-drafts")
	paymentDrafts.POST("", draftHandler.Create)
	paymentDrafts.GET("/:id", draftHandler.Get)
	paymentDrafts.DELETE("/:id", draftHandler.Delete)
	paymentDrafts.POST("/:id/installments/:installmentId/toggle", draftHandler.Toggle)
	paymentDrafts.PUT("/:id/installments/:installmentId/amount", draftHandler.SetAmount)
	paymentDrafts.POST("/:id/installments/:installmentId/methods", draftHandler.AddMethod)
	paymentDrafts.PATCH("/:id/installments/:installmentId/methods/:index", draftHandler.UpdateMethod)
	paymentDrafts.DELETE("/:id/installments/:installmentId/methods/:index", draftHandler.RemoveMethod)
	paymentDrafts.PUT("/:id/discount", draftHandler.ApplyDiscount)
	paymentDrafts.PUT("/:id/given-amount", draftHandler.SetGivenAmount)
	paymentDrafts.POST("/:id/commit", draftHandler.Commit)
	paymentDrafts.GET("/:id/journal", draftHandler.Journal)

	if redisClient == nil {
		go purgeDrafts(ctx, drafts)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "draft_store", cfg.Payments.DraftStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if active := guard.InFlight(); active > 0 {
		logr.Warn("shutting down with draft work in flight", zap.Int("held_keys", active))
	}
}

func readiness(db *sqlx.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "database"})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "redis"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func purgeDrafts(ctx context.Context, drafts *repository.DraftRepository) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drafts.Purge()
		}
	}
}
