package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aulanet/aulanet/internal/accounts"
	"github.com/aulanet/aulanet/internal/app"
	"github.com/aulanet/aulanet/internal/auth"
	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/identity"
	"github.com/aulanet/aulanet/internal/library"
	"github.com/aulanet/aulanet/internal/observability"
	"github.com/aulanet/aulanet/internal/programs"
	"github.com/aulanet/aulanet/internal/schedule"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/students"
	"github.com/aulanet/aulanet/internal/view"
	"github.com/aulanet/aulanet/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// A drifting role/landing map must fail startup, not 404 users at login.
	if err := authz.ValidateLandingPages(); err != nil {
		logger.Error("validate landing pages", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "aulanet_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	mailClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, logger)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, mailClient, metrics)

	identityService := identity.NewService(identity.NewRepository(dbpool))

	accountsService := accounts.NewService(accounts.NewRepository(dbpool), auditLogger, logger)
	accountsHandler := accounts.NewHandler(logger, accountsService, templates, csrfManager, mailClient)

	programsService := programs.NewService(programs.NewRepository(dbpool))
	programsHandler := programs.NewHandler(logger, programsService, templates, csrfManager)

	scheduleService := schedule.NewService(schedule.NewRepository(dbpool))
	scheduleHandler := schedule.NewHandler(logger, scheduleService, identityService, templates, csrfManager)

	libraryService := library.NewService(library.NewRepository(dbpool))
	libraryHandler := library.NewHandler(logger, libraryService, templates, csrfManager)

	studentsHandler := students.NewHandler(logger, identityService, programsService, libraryService, templates, csrfManager)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Metrics:         metrics,
		AuthHandler:     authHandler,
		AccountsHandler: accountsHandler,
		ProgramsHandler: programsHandler,
		ScheduleHandler: scheduleHandler,
		LibraryHandler:  libraryHandler,
		StudentsHandler: studentsHandler,
		Guard:           authz.Middleware{Logger: logger},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
