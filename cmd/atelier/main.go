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

	"github.com/atelier-crm/atelier-crm/internal/app"
	"github.com/atelier-crm/atelier-crm/internal/auth"
	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/catalog"
	"github.com/atelier-crm/atelier-crm/internal/clients"
	"github.com/atelier-crm/atelier-crm/internal/dashboard"
	"github.com/atelier-crm/atelier-crm/internal/observability"
	"github.com/atelier-crm/atelier-crm/internal/platform/cache"
	"github.com/atelier-crm/atelier-crm/internal/platform/db"
	"github.com/atelier-crm/atelier-crm/internal/roles"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/transactions"
	"github.com/atelier-crm/atelier-crm/internal/users"
	"github.com/atelier-crm/atelier-crm/internal/vendors"
	"github.com/atelier-crm/atelier-crm/internal/view"
	"github.com/atelier-crm/atelier-crm/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "atelier_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo)

	evaluator := authz.NewEvaluator(rolesRepo, logger)
	usersRepo := users.NewRepository(dbpool)
	guard := authz.Middleware{
		Evaluator:      evaluator,
		Profiles:       usersRepo,
		Logger:         logger,
		DenialRecorder: metrics,
	}
	boundary := authz.DefaultBoundary()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)

	usersService := users.NewService(usersRepo, authService, rolesRepo, jobClient, logger)
	resetMail := jobClient.PasswordResetMail(cfg.PasswordResetBaseURL, logger)
	authHandler := auth.NewHandler(logger, authService, usersService, templates, sessionManager, csrfManager, resetMail)

	clientsService := clients.NewService(clients.NewRepository(dbpool))
	catalogService := catalog.NewService(catalog.NewRepository(dbpool))
	vendorsService := vendors.NewService(vendors.NewRepository(dbpool))
	transactionsService := transactions.NewService(transactions.NewRepository(dbpool), catalogService)
	dashboardService := dashboard.NewService(logger, redisClient, clientsService, catalogService, vendorsService, transactionsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Boundary:       &boundary,
		Guard:          guard,

		AuthHandler:         authHandler,
		DashboardHandler:    dashboard.NewHandler(logger, dashboardService, templates, csrfManager),
		ClientsHandler:      clients.NewHandler(logger, clientsService, templates, csrfManager, guard),
		CatalogHandler:      catalog.NewHandler(logger, catalogService, vendorsService, templates, csrfManager, guard),
		VendorsHandler:      vendors.NewHandler(logger, vendorsService, templates, csrfManager, guard),
		TransactionsHandler: transactions.NewHandler(logger, transactionsService, clientsService, catalogService, templates, csrfManager, guard),
		UsersHandler:        users.NewHandler(logger, usersService, rolesRepo, templates, csrfManager, guard),
		RolesHandler:        roles.NewHandler(logger, rolesService, templates, csrfManager, guard),
		JobsHandler:         jobs.NewHandler(inspector, logger),

		Metrics: metrics,
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
