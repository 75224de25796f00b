package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/resus/resus/internal/config"
	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/recommendation"
	"github.com/resus/resus/internal/domain/resuscitation"
	"github.com/resus/resus/internal/domain/survey"
	"github.com/resus/resus/internal/domain/trigger"
	"github.com/resus/resus/internal/platform/auth"
	"github.com/resus/resus/internal/platform/db"
	"github.com/resus/resus/internal/platform/middleware"
	"github.com/resus/resus/internal/platform/websocket"
	"github.com/resus/resus/migrations"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resus-server",
		Short:        "Pediatric resuscitation decision API server",
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(evaluateCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the resuscitation API server",
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

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS, schema)
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS, schema)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(cmd.OutOrStdout(), schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatuses(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// openPool connects for the migrate commands, which need a database even
// when the server itself would run on the memory store.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	return db.NewPool(ctx, db.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	}, zerolog.Nop())
}

const evaluateExample = `  resus-server evaluate --trigger glucose --value 40 --age-years 2 --weight 12
  resus-server evaluate --trigger pulse --value false --age-years 5`

func evaluateCmd() *cobra.Command {
	var (
		name      string
		value     string
		ageYears  int
		ageMonths int
		weight    float64
	)
	cmd := &cobra.Command{
		Use:     "evaluate",
		Short:   "Evaluate one trigger rule and print the outcome as JSON",
		Example: evaluateExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := patient.Identity{AgeYears: ageYears, AgeMonths: ageMonths, WeightKg: weight}
			if err := id.Validate(); err != nil {
				return err
			}
			outcome, err := trigger.NewRegistry().Evaluate(trigger.Name(name), parseObservation(value), id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		},
	}
	cmd.Flags().StringVar(&name, "trigger", "", "Trigger name (breathing, pulse, spo2, heart_rate, glucose, ...)")
	cmd.Flags().StringVar(&value, "value", "", "Observed value: a number, true/false, or a category")
	cmd.Flags().IntVar(&ageYears, "age-years", 0, "Patient age in whole years")
	cmd.Flags().IntVar(&ageMonths, "age-months", 0, "Additional months (0-11)")
	cmd.Flags().Float64Var(&weight, "weight", 0, "Observed weight in kg; estimated from age when omitted")
	_ = cmd.MarkFlagRequired("trigger")
	return cmd
}

// parseObservation reads a flag value the way the JSON API does: booleans
// become flags, numbers become numbers, anything else is a category.
func parseObservation(s string) trigger.Observation {
	s = strings.TrimSpace(s)
	if s == "" {
		return trigger.Unset()
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return trigger.Flag(b)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return trigger.Number(f)
	}
	return trigger.Category(s)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(level)
	}
	return logger
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logger
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Case store
	ctx := context.Background()
	var (
		pool *pgxpool.Pool
		repo resuscitation.Repository
	)
	switch cfg.Store {
	case config.StorePostgres:
		pool, err = db.NewPool(ctx, db.PoolConfig{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = resuscitation.NewRepo(pool)
		logger.Info().Msg("connected to database")
	default:
		repo = resuscitation.NewMemoryRepo()
		logger.Warn().Msg("cases are kept in memory and lost on restart")
	}

	// Live trail updates
	hub := websocket.NewHub(logger)

	registry := trigger.NewRegistry()
	caseSvc := resuscitation.NewService(repo, registry, logger)
	caseSvc.SetPublisher(hub)
	if cfg.ReassessmentReminders {
		reminders := resuscitation.NewReminders(hub, logger)
		defer reminders.Stop()
		caseSvc.SetReminders(reminders)
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("256K"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	patient.NewHandler().RegisterRoutes(apiV1)
	survey.NewHandler().RegisterRoutes(apiV1)
	trigger.NewHandler(registry).RegisterRoutes(apiV1)
	recommendation.NewHandler().RegisterRoutes(apiV1)
	resuscitation.NewHandler(caseSvc).RegisterRoutes(apiV1)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.Store).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
