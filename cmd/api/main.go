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

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/config"
	"aurora-dashboard/internal/httpapi"
	"aurora-dashboard/internal/provisioning"
	"aurora-dashboard/internal/reporting"
	"aurora-dashboard/internal/telephony"
	"aurora-dashboard/pkg/logger"
	"aurora-dashboard/pkg/utils"
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

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
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

	// Redis only backs the per-tenant job limiter; the API still serves without it.
	var jobs httpapi.SlotLimiter
	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Warn("redis unavailable, job limits disabled", "err", err)
	} else {
		defer rdb.Close()
		slots, err := utils.NewJobSlots(rdb, "aurora:jobs", cfg.Analytics.JobConcurrency, cfg.Analytics.JobTTL)
		if err != nil {
			log.Error("job slots init failed", "err", err)
			os.Exit(1)
		}
		jobs = slots
	}

	loc := cfg.Location()
	repo := calls.NewPostgresRepo(db)
	auditor := audit.NewService(audit.NewPostgresRepo(db))
	engine := analytics.NewEngine(repo, loc, cfg.Analytics.Capacity)
	rollups := analytics.NewRollupService(repo, loc)

	deps := routeDeps{
		Handlers: httpapi.Handlers{
			Calls:     repo,
			Engine:    engine,
			Dashboard: analytics.NewDashboardService(repo, loc),
			Tools:     reporting.NewService(repo, engine, auditor, cfg.Analytics.ExportLimit, loc),
			Rollups:   rollups,
			Agents:    provisioning.NewClient(cfg.Provisioning.WebhookURL, cfg.Provisioning.Timeout),
			Audit:     auditor,
			Location:  loc,
		},
		Twilio: telephony.StatusHandler{
			Store:         repo,
			Rollups:       rollups,
			AuthToken:     cfg.Twilio.AuthToken,
			PublicBaseURL: cfg.Twilio.PublicBaseURL,
			Now:           time.Now,
		},
		AuthMW: auth.RequireAccessToken(authManager),
		Jobs:   jobs,
		Ready: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "timezone", loc.String())
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

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
