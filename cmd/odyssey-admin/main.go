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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-admin/cmd/odyssey-admin/cli"
	"github.com/odyssey-erp/odyssey-admin/internal/apiclient"
	"github.com/odyssey-erp/odyssey-admin/internal/app"
	"github.com/odyssey-erp/odyssey-admin/internal/auth"
	"github.com/odyssey-erp/odyssey-admin/internal/nav"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/screens"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/shell"
	"github.com/odyssey-erp/odyssey-admin/internal/view"
	"github.com/odyssey-erp/odyssey-admin/jobs"
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
	slog.SetDefault(logger)

	if len(os.Args) > 2 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, cfg, logger, os.Args[2:]))
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	apiClient, err := apiclient.New(apiclient.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Logger: logger})
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}

	var auditStore auth.AuditStore
	if cfg.AuditEnabled() {
		pool, err := db.New(ctx, cfg.Postgres("odyssey-admin"))
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		repo := auth.NewAuditRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("ensure audit schema", slog.Any("error", err))
			os.Exit(1)
		}
		auditStore = repo
	}
	recorder := auth.NewRecorder(auditStore, logger)

	storage := session.NewRedisStorage(redisClient, cfg.SessionTTL)
	registry := session.NewRegistry(cfg.ShellCacheSize, cfg.ShellIdleTTL, func(key string) session.Config {
		return session.Config{
			Key:     key,
			Backend: apiClient,
			Storage: storage,
			Logger:  logger,
			OnEvent: func(ev session.Event) {
				metrics.SessionEvent(string(ev.Kind))
				recorder.HandleEvent(ev)
			},
		}
	})

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	renderer := &shell.Renderer{
		Templates:  templates,
		CSRF:       csrfManager,
		Expansions: nav.NewExpansionRegistry(cfg.ShellCacheSize, cfg.ShellIdleTTL),
		Tree:       nav.DefaultTree(),
		Logger:     logger,
	}
	guard := rbac.Middleware{
		Resolve: auth.Subject,
		Logger:  logger,
		Loading: renderer.Loading(),
		Observe: func(d rbac.Decision) { metrics.GuardDecision(d.String()) },
	}

	inspector := asynq.NewInspector(jobs.RedisOpt(cfg.Redis()))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Sessions:       auth.SessionMiddleware{Registry: registry, Logger: logger, RestoreTimeout: cfg.RestoreTimeout},
		Guard:          guard,
		AuthHandler:    auth.NewHandler(logger, renderer, csrfManager, cfg.LoginRateLimit),
		ShellHandler:   shell.NewHandler(logger, renderer, guard),
		ScreensHandler: screens.NewHandler(logger, renderer, apiClient, guard),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func runJobsCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	jobsCLI := cli.NewJobsCLI(jobs.RedisOpt(cfg.Redis()), cfg.AuditRetention)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()
	if err := jobsCLI.Run(ctx, os.Stdout, args); err != nil {
		logger.Error("jobs command", slog.Any("error", err))
		return 1
	}
	return 0
}
