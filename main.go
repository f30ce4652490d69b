package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
	"golang.org/x/sync/errgroup"

	"github.com/littlesteps-app/backoffice/app/db"
	"github.com/littlesteps-app/backoffice/app/logger"
	"github.com/littlesteps-app/backoffice/app/observability/metrics"
	"github.com/littlesteps-app/backoffice/config"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/api/kid"
	"github.com/littlesteps-app/backoffice/internal/api/role"
	"github.com/littlesteps-app/backoffice/internal/api/settings"
	"github.com/littlesteps-app/backoffice/internal/api/user"
	"github.com/littlesteps-app/backoffice/internal/notify"
	"github.com/littlesteps-app/backoffice/internal/router"
)

func setupLogger() *slog.Logger {
	var handler slog.Handler
	switch os.Getenv("APP_ENV") {
	case "production":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	}
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

func run() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on environment")
	}

	log := setupLogger()

	cfg, err := config.InitConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, err := metrics.SetupPrometheus()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	metrics.InitAppMetrics()

	dbConfig, err := database.NewDatabaseConfig(&cfg, log)
	if err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if !database.WaitForDB(ctx, pool, log) {
		return errors.New("database not reachable")
	}

	if cfg.OAuth.Google.Key != "" {
		goth.UseProviders(
			google.New(cfg.OAuth.Google.Key, cfg.OAuth.Google.Secret, cfg.OAuth.Google.CallbackURL),
		)
	}

	tokens := auth.NewTokens(cfg.Auth)
	notifier := notify.NewLogSender(log)

	roleRepo := role.NewPostgresRepo(pool, log)
	roleService := role.NewService(roleRepo, log)
	roleHandler := role.NewHandlerImpl(roleService, log)

	authRepo := auth.NewPostgresAuthRepo(pool, log)
	authService := auth.NewAuthService(authRepo, roleRepo, tokens, notifier, log)
	authHandler := auth.NewHandlerImpl(authService, log)

	userRepo := user.NewPostgresRepo(pool, log)
	userService := user.NewService(userRepo, log)
	userHandler := user.NewHandlerImpl(userService, log)

	kidRepo := kid.NewPostgresRepo(pool, log)
	kidService := kid.NewService(kidRepo, log)
	kidHandler := kid.NewHandlerImpl(kidService, log)

	configRepo := settings.NewPostgresRepo(pool, log)
	configService := settings.NewService(configRepo, log)
	configHandler := settings.NewHandlerImpl(configService, log)

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.StructuredLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(cfg.Server.Timeout))
	r.Use(middleware.Compress(5))

	router.Setup(r, router.Config{
		Logger:        log,
		Tokens:        tokens,
		Roles:         roleRepo,
		AuthHandler:   authHandler,
		UserHandler:   userHandler,
		KidHandler:    kidHandler,
		ConfigHandler: configHandler,
		RoleHandler:   roleHandler,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: metricsMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Metrics server listening", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", slog.Any("error", err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Metrics server shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	return g.Wait()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}
