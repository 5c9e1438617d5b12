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
	"github.com/spf13/cobra"

	"github.com/JonnyWalker81/trendy/engagement/internal/config"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
	"github.com/JonnyWalker81/trendy/engagement/internal/metrics"
	"github.com/JonnyWalker81/trendy/engagement/internal/middleware"
	"github.com/JonnyWalker81/trendy/engagement/internal/service"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server and listen for requests.`,
	RunE:  runServe,
}

var (
	port string
)

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from flag if provided
	if port != "" {
		cfg.Server.Port = port
	}

	log := logger.NewSlogLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	logger.SetDefault(log)

	log.Info("starting engagement API server",
		logger.String("env", cfg.Server.Env),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("default_timezone", cfg.Engine.DefaultTimezone),
	)

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			log.Error("failed to close storage", logger.Err(err))
		}
	}()

	m := metrics.New()

	catalog, stopWatch, err := openCatalog(cfg.Catalog, m, log)
	if err != nil {
		return err
	}
	defer stopWatch()

	svc := service.NewEngagementService(store.events, store.progress, catalog, m, service.Settings{
		TrendWindowSize: cfg.Engine.TrendWindowSize,
		TrendThreshold:  cfg.Engine.TrendThreshold,
		MaxFutureSkew:   cfg.Engine.MaxFutureSkew,
	})

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute, time.Minute, "ingest")
		defer limiter.Close()
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := newRouter(cfg, svc, m, limiter, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
