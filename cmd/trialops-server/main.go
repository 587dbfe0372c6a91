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

	"github.com/trialops/trialops/internal/config"
	"github.com/trialops/trialops/internal/domain/finance"
	"github.com/trialops/trialops/internal/domain/lead"
	"github.com/trialops/trialops/internal/domain/participant"
	"github.com/trialops/trialops/internal/domain/visit"
	"github.com/trialops/trialops/internal/platform/auth"
	"github.com/trialops/trialops/internal/platform/blobstore"
	"github.com/trialops/trialops/internal/platform/db"
	"github.com/trialops/trialops/internal/platform/middleware"
	"github.com/trialops/trialops/internal/platform/vision"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trialops-server",
		Short: "Clinical trial operations API server",
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
		Short: "Start the trial operations API server",
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
			for _, s := range statuses {
				status := "pending"
				appliedAt := "-"
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format(time.RFC3339)
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
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Object storage
	var blob blobstore.Store
	if cfg.GCSBucket != "" {
		gcs, err := blobstore.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open object store")
		}
		defer gcs.Close()
		blob = gcs
		logger.Info().Str("bucket", cfg.GCSBucket).Msg("object store ready")
	} else {
		blob = blobstore.NewMemory()
		logger.Warn().Msg("GCS_BUCKET not set, using in-memory object store")
	}

	// Vision extraction
	var extractor *vision.Extractor
	if cfg.OpenAIAPIKey != "" {
		extractor, err = vision.NewExtractor(cfg.OpenAIAPIKey, cfg.VisionModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build vision extractor")
		}
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, document extraction disabled")
	}

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
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevMiddleware())
	} else {
		e.Use(auth.Middleware([]byte(cfg.JWTSecret)))
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Services
	runner := db.PoolRunner{Pool: pool}

	participantRepo := participant.NewRepoPG(pool)
	participantSvc := participant.NewService(participantRepo, runner, logger)

	visitRepo := visit.NewRepoPG(pool)
	visitSvc := visit.NewService(visitRepo, participantSvc, blob, extractorOrNil(extractor), runner, logger)

	leadRepo := lead.NewRepoPG(pool)
	leadSvc := lead.NewService(leadRepo, participantSvc, blob, extractorOrNil(extractor), logger)

	financeSvc := finance.NewService(finance.NewExpenseRepoPG(pool), finance.NewFundRepoPG(pool), logger)

	// Routes
	apiV1 := e.Group("/api/v1")
	participant.NewHandler(participantSvc).RegisterRoutes(apiV1)
	visit.NewHandler(visitSvc, time.Duration(cfg.PresignTTLSeconds)*time.Second).RegisterRoutes(apiV1)
	lead.NewHandler(leadSvc).RegisterRoutes(apiV1)
	finance.NewHandler(financeSvc).RegisterRoutes(apiV1)

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// extractorOrNil keeps a disabled extractor as a typed nil interface so the
// services' nil checks work.
func extractorOrNil(e *vision.Extractor) visit.Extractor {
	if e == nil {
		return nil
	}
	return e
}
