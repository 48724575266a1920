package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/safecare/safecare/internal/config"
	"github.com/safecare/safecare/internal/domain/incident"
	"github.com/safecare/safecare/internal/domain/monitoring"
	"github.com/safecare/safecare/internal/domain/resident"
	"github.com/safecare/safecare/internal/domain/vitals"
	"github.com/safecare/safecare/internal/platform/auth"
	"github.com/safecare/safecare/internal/platform/db"
	"github.com/safecare/safecare/internal/platform/middleware"
	"github.com/safecare/safecare/internal/platform/notification"
	"github.com/safecare/safecare/internal/platform/realtime"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "safecare-server",
		Short: "SafeCare incident response and alerting server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the SafeCare API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware([]byte(cfg.JWTSigningKey)))
	}

	// Realtime hub
	hub := realtime.NewHub(logger)
	wsHandler := realtime.NewHandler(hub)

	// Notification platform. Senders are mocks until a real SMS/email
	// provider is configured for the facility.
	notifyMgr := notification.NewManager(
		&notification.MockEmailSender{},
		&notification.MockSMSSender{},
		notification.NewTemplateEngine(),
	)

	// Domain wiring
	residentRepo := resident.NewRepoPG(pool)
	residentSvc := resident.NewService(residentRepo)
	residentHandler := resident.NewHandler(residentSvc)

	vitalsRepo := vitals.NewRepoPG(pool)
	vitalsSvc := vitals.NewService(vitalsRepo, residentSvc, hub)
	vitalsHandler := vitals.NewHandler(vitalsSvc)

	incidentRepo := incident.NewRepoPG(pool)
	familyNotifier := incident.NewFamilyNotifier(notifyMgr, incidentRepo, logger)
	incidentTimeout := time.Duration(cfg.IncidentTimeoutMinutes) * time.Minute
	incidentSvc := incident.NewService(incidentRepo, residentSvc, hub, familyNotifier, incidentTimeout, logger)
	incidentHandler := incident.NewHandler(incidentSvc)

	// Background scanner
	scanner := monitoring.NewScanner(residentSvc, vitalsRepo, incidentRepo, hub, hub, monitoring.Config{
		OverdueInterval:     cfg.OverdueScanInterval,
		HealthScoreInterval: cfg.HealthScoreInterval,
		MetricsInterval:     cfg.MetricsInterval,
		VitalsOverdue:       time.Duration(cfg.VitalsOverdueHours) * time.Hour,
	}, logger)
	scannerCtx, scannerCancel := context.WithCancel(ctx)
	defer scannerCancel()
	scanner.Start(scannerCtx)

	// Routes
	apiV1 := e.Group("/api/v1")
	residentHandler.RegisterRoutes(apiV1)
	vitalsHandler.RegisterRoutes(apiV1)
	incidentHandler.RegisterRoutes(apiV1)
	wsHandler.RegisterRoutes(e.Group(""))

	notifyHandler := notification.NewHandler(notifyMgr)
	notifyHandler.RegisterRoutes(apiV1.Group("", auth.RequireRole(auth.RoleAdmin)))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	scannerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
