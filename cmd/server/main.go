package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/config"
	"voice-dialogue-demo/backend/pkg/di"
	"voice-dialogue-demo/backend/pkg/health"
	"voice-dialogue-demo/backend/pkg/logger"
	"voice-dialogue-demo/backend/pkg/router"
	"voice-dialogue-demo/backend/shared/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", cfg.Server.Version, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.TracingEnabled {
		shutdownTracing, err := observability.SetupTracing(cfg.Observability.ServiceName, nil)
		if err != nil {
			log.LogError(err, "Failed to initialize tracing")
			os.Exit(1)
		}
		defer shutdownTracing(context.Background())
	}

	var metricsHandler http.Handler
	if cfg.Observability.MetricsEnabled {
		metrics, err := observability.SetupMetrics(cfg.Observability.ServiceName)
		if err != nil {
			log.LogError(err, "Failed to initialize metrics")
			os.Exit(1)
		}
		defer metrics.Shutdown(context.Background())
		metricsHandler = metrics.Handler()
	}

	db, err := config.NewDB(cfg)
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	container, err := di.New(ctx, cfg, db, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}
	defer container.Close()

	r := router.New(container)
	r.SetupRoutes(metricsHandler)
	defer r.Close()

	grpcServer := health.NewGRPCServer(container.Health)
	container.Health.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "HTTP server failed")
			stop()
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			log.LogError(err, "Failed to listen for gRPC", "port", cfg.Server.GRPCPort)
			stop()
			return
		}
		log.Info("gRPC health server starting", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.LogError(err, "gRPC server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	grpcServer.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
