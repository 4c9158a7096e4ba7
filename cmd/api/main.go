package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outdial-platform/internal/agents"
	"outdial-platform/internal/audit"
	"outdial-platform/internal/auth"
	"outdial-platform/internal/calljobs"
	"outdial-platform/internal/calls"
	"outdial-platform/internal/config"
	"outdial-platform/internal/contacts"
	"outdial-platform/internal/httpapi"
	"outdial-platform/internal/telephony"
	"outdial-platform/pkg/logger"
	"outdial-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Stores
	contactStore := contacts.NewPostgresStore(db)
	dncStore := contacts.NewPostgresDNCStore(db)
	agentStore := agents.NewPostgresStore(db)
	callStore := calls.NewPostgresStore(db)
	jobStore := calljobs.NewPostgresStore(db)
	auditRepo := audit.NewPostgresRepo(db)

	// Services
	providers := telephony.NewRegistry(cfg.Retell, cfg.Vapi)
	contactSvc := contacts.NewService(contactStore, dncStore)
	importer := contacts.NewImporter(contactStore)
	agentSvc := agents.NewService(agentStore, providers)
	dialer := calls.NewDialer(agentStore, contactStore, dncStore, callStore, providers)
	jobSvc := calljobs.NewService(jobStore, agentStore, contactStore, dncStore)
	auditSvc := audit.NewService(auditRepo)

	// Background job runner
	limiter := utils.NewRedisDialLimiter(rdb)
	runner := calljobs.NewRunner(jobStore, dialer, limiter, cfg.Runner, log)
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		runner.Run(rootCtx)
	}()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:     authManager,
		Jobs:     jobSvc,
		Dialer:   dialer,
		Contacts: contactSvc,
		Importer: importer,
		Agents:   agentSvc,
		Audit:    auditSvc,
		Log:      log,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager), telephony.WebhookHandler{SigningKey: cfg.Retell.APIKey})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Let an in-flight runner pass finish before the stores close.
	select {
	case <-runnerDone:
	case <-shutdownCtx.Done():
		log.Error("runner shutdown timed out")
	}
}
