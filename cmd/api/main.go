package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/apexbuild/apexbuild-backend/api/routes"
	"github.com/apexbuild/apexbuild-backend/internal/auth"
	"github.com/apexbuild/apexbuild-backend/internal/contact"
	"github.com/apexbuild/apexbuild-backend/internal/documents"
	"github.com/apexbuild/apexbuild-backend/internal/equipment"
	"github.com/apexbuild/apexbuild-backend/internal/materials"
	"github.com/apexbuild/apexbuild-backend/internal/payments"
	"github.com/apexbuild/apexbuild-backend/internal/procurement"
	"github.com/apexbuild/apexbuild-backend/internal/projects"
	"github.com/apexbuild/apexbuild-backend/internal/safety"
	"github.com/apexbuild/apexbuild-backend/internal/tasks"
	"github.com/apexbuild/apexbuild-backend/internal/team"
	"github.com/apexbuild/apexbuild-backend/internal/tickets"
	"github.com/apexbuild/apexbuild-backend/internal/users"
	"github.com/apexbuild/apexbuild-backend/pkg/auth/session"
	"github.com/apexbuild/apexbuild-backend/pkg/config"
	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/logger"
	"github.com/apexbuild/apexbuild-backend/pkg/migrate"
	"github.com/apexbuild/apexbuild-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, promRegistry, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
) (routes.Services, error) {
	gdb := dbClient.DB()
	usersRepo := users.NewRepository(gdb)

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		TxRunner:       dbClient,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	teamSvc, err := team.NewService(usersRepo, dbClient, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}

	projectsSvc, err := projects.NewService(projects.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	tasksSvc, err := tasks.NewService(tasks.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	ticketsSvc, err := tickets.NewService(tickets.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	alerter := materials.NewRedisAlerter(redisClient, logg, 0)
	materialsSvc, err := materials.NewService(materials.NewRepository(gdb), dbClient, alerter)
	if err != nil {
		return routes.Services{}, err
	}

	procurementSvc, err := procurement.NewService(procurement.NewRepository(gdb), dbClient, materialsSvc)
	if err != nil {
		return routes.Services{}, err
	}

	paymentsSvc, err := payments.NewService(payments.NewRepository(gdb), projectsSvc)
	if err != nil {
		return routes.Services{}, err
	}

	documentsSvc, err := documents.NewService(documents.NewRepository(gdb), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	equipmentSvc, err := equipment.NewService(equipment.NewRepository(gdb), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	safetySvc, err := safety.NewService(safety.NewRepository(gdb), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	contactSvc, err := contact.NewService(contact.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authSvc,
		Projects:    projectsSvc,
		Tasks:       tasksSvc,
		Tickets:     ticketsSvc,
		Materials:   materialsSvc,
		Procurement: procurementSvc,
		Payments:    paymentsSvc,
		Documents:   documentsSvc,
		Equipment:   equipmentSvc,
		Safety:      safetySvc,
		Team:        teamSvc,
		Contact:     contactSvc,
	}, nil
}
