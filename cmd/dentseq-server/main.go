package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/scherkao31/dentseq-data-sub000/internal/config"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/assistant"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/formoptions"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/parsing"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/plan"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/sequence"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/stats"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/auth"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/cache"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/db"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/llm"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/metrics"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/middleware"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/openapi"
	"github.com/scherkao31/dentseq-data-sub000/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dentseq-server",
		Short: "Dental treatment sequence data collection API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(parseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrations.FS))
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
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

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text>",
		Short: "Structure a free-text treatment plan and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env, os.Stderr)
			parser := parsing.NewParser(newLLMClient(cfg, llm.NewLogObserver(logger)), taxonomy.Default().Entries(), logger)
			res, err := parser.Parse(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func newLLMClient(cfg *config.Config, observer llm.Observer) llm.Client {
	return llm.NewOpenAI(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}, observer)
}

// authMiddleware picks token verification for the environment. Development
// injects an admin identity when no token is presented.
func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	jwtCfg := auth.JWTConfig{
		Secret:   []byte(cfg.AuthJWTSecret),
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		Skipper:  auth.AuthSkipper,
	}
	if cfg.IsDev() {
		return auth.DevAuthMiddleware(jwtCfg)
	}
	return auth.JWTMiddleware(jwtCfg)
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func newCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.JSON, func()) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set, using in-process cache")
		return cache.NewMemory(), func() {}
	}
	rc, err := cache.NewRedis(ctx, cfg.RedisURL, "dentseq:")
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-process cache")
		return cache.NewMemory(), func() {}
	}
	logger.Info().Msg("connected to redis")
	return rc, func() { _ = rc.Close() }
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logger
	logger := newLogger(cfg.Env, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("running in development mode: requests without a token act as admin dev-user")
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set: plan parsing and chat will fail with a configuration error")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	jsonCache, closeCache := newCache(ctx, cfg, logger)
	defer closeCache()

	// Metrics
	mtx := metrics.New()
	mtx.RegisterPool(pool)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(mtx.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(authMiddleware(cfg))

	// Health
	e.GET("/health", db.LivenessHandler("dentseq-server", version))
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", mtx.Handler())

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/api/v1/chat"))

	// Form options and the treatment catalog derived from them
	formSvc := formoptions.NewService(formoptions.NewRepo(pool), jsonCache, cfg.FormOptionsCacheTTL, logger)
	formoptions.NewHandler(formSvc).RegisterRoutes(apiV1)

	// Plan parsing
	llmClient := newLLMClient(cfg, llm.Observers{llm.NewLogObserver(logger), mtx})
	parser := parsing.NewParser(llmClient, taxonomy.Default().Entries(), logger)
	parsing.NewHandler(parser).RegisterRoutes(apiV1)

	// Treatment plans
	planSvc := plan.NewService(plan.NewRepo(pool), parser, logger)
	plan.NewHandler(planSvc).RegisterRoutes(apiV1)

	// Sequences and the stateless editor
	seqSvc := sequence.NewService(sequence.NewRepo(pool), formSvc, logger)
	sequence.NewHandler(seqSvc).RegisterRoutes(apiV1)

	// Assistant chat
	chatSvc := assistant.NewService(llmClient, planSvc, cfg.ChatMaxDuration, logger)
	assistant.NewHandler(chatSvc).RegisterRoutes(apiV1)

	// Dataset statistics and export
	statsSvc := stats.NewService(stats.NewRepo(pool), seqSvc, planSvc, logger)
	stats.NewHandler(statsSvc).RegisterRoutes(apiV1)

	// API description
	openapi.NewGenerator(e.Routes, version, "/api/v1").RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
