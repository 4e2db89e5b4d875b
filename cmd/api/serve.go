package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/osirix/clinique-api/internal/config"
	"github.com/osirix/clinique-api/internal/email"
	appointmentHandler "github.com/osirix/clinique-api/internal/handler/appointment"
	catalogHandler "github.com/osirix/clinique-api/internal/handler/catalog"
	"github.com/osirix/clinique-api/internal/handler/health"
	notificationHandler "github.com/osirix/clinique-api/internal/handler/notification"
	promHandler "github.com/osirix/clinique-api/internal/handler/prometheus"
	"github.com/osirix/clinique-api/internal/middleware"
	"github.com/osirix/clinique-api/internal/repository/postgres"
	"github.com/osirix/clinique-api/internal/router"
	appointmentService "github.com/osirix/clinique-api/internal/service/appointment"
	catalogService "github.com/osirix/clinique-api/internal/service/catalog"
	"github.com/osirix/clinique-api/internal/service/notification"
	"github.com/osirix/clinique-api/pkg/auth"
	"github.com/osirix/clinique-api/pkg/logger"
	"github.com/osirix/clinique-api/pkg/messaging"
	"github.com/osirix/clinique-api/pkg/messaging/redis"
	"github.com/osirix/clinique-api/pkg/metrics"
)

const serviceName = "clinique-api"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServer(cfg)
		},
	}
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Format == "json",
	})
	// Request logging middleware writes through the global logger.
	log.Logger = appLog.Zerolog()
	return appLog
}

func newBroker(ctx context.Context, cfg config.RedisConfig, appLog *logger.Logger) (messaging.Broker, health.Checker, error) {
	if cfg.URL == "" {
		appLog.Info("Redis not configured, using in-process broker")
		return messaging.NewMemoryBroker(), nil, nil
	}
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, appLog)
	if err != nil {
		return nil, nil, err
	}
	return broker, broker, nil
}

func runServer(cfg *config.Config) error {
	appLog := newLogger(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	location, err := cfg.Clinic.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("clinique", registry)

	// Database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db, m)
	consultationTypeRepo := postgres.NewConsultationTypeRepository(db, m)

	// Messaging
	broker, brokerCheck, err := newBroker(ctx, cfg.Redis, appLog)
	if err != nil {
		return err
	}
	defer broker.Close()

	hub := notification.NewHub(broker, m, appLog, cfg.CORS.AllowedOrigins)
	if err := hub.Start(ctx); err != nil {
		return err
	}
	publisher := notification.NewPublisher(broker, m, appLog)

	// Services
	catalogSvc := catalogService.NewService(consultationTypeRepo, cfg.Catalog.CacheTTL)
	mailer := email.NewService(cfg.SMTP, cfg.Clinic.Name, appLog)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		catalogSvc,
		publisher,
		mailer,
		m,
		appLog,
		location,
	)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Handlers
	checks := map[string]health.Checker{
		"database": health.CheckFunc(db.PingContext),
	}
	if brokerCheck != nil {
		checks["redis"] = brokerCheck
	}

	r := router.NewRouter(
		authMiddleware,
		appointmentHandler.NewHandler(appointmentSvc),
		catalogHandler.NewHandler(catalogSvc),
		notificationHandler.NewHandler(hub),
		health.NewHandler(checks),
		promHandler.New(registry),
		m,
		router.RouterConfig{
			ServiceName:    serviceName,
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			RateEnabled:    cfg.RateLimit.Enabled,
			RequestTimeout: cfg.Server.RequestTimeout,
			CatalogMaxAge:  cfg.Catalog.CacheTTL,
			CORSConfig:     middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
			Validation:     middleware.DefaultValidationConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	appLog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	appointmentSvc.Wait()

	appLog.Info("Server exited properly")
	return nil
}
