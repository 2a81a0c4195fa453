package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/lectio/internal/analysis"
	"github.com/at-ishikawa/lectio/internal/bootstrap"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/inference/openai"
	"github.com/at-ishikawa/lectio/internal/logging"
	"github.com/at-ishikawa/lectio/internal/pipeline"
	"github.com/at-ishikawa/lectio/internal/review"
	"github.com/at-ishikawa/lectio/internal/server"
	"github.com/at-ishikawa/lectio/internal/source"
	"github.com/at-ishikawa/lectio/internal/source/local"
	"github.com/at-ishikawa/lectio/internal/source/web"
	"github.com/at-ishikawa/lectio/internal/video"
)

var (
	configFile string
	debugMode  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "lectio-server",
		Short:         "Lectio learning and review service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	logger, err := logging.New(cfg.Logging.Mode, debugMode)
	if err != nil {
		return fmt.Errorf("logging.New() > %w", err)
	}
	defer logging.Sync(logger)

	app := bootstrap.New(logger)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("database.Open() > %w", err)
	}
	app.AddShutdownHook("database", func(context.Context) error {
		return db.Close()
	})
	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(db, logger); err != nil {
			_ = db.Close()
			return fmt.Errorf("database.Migrate() > %w", err)
		}
	}

	fetcher, err := newFetcher(cfg.Source, logger)
	if err != nil {
		_ = db.Close()
		return err
	}

	openaiClient := openai.NewClient(cfg.OpenAI, logger)
	app.AddShutdownHook("openai client", func(context.Context) error {
		return openaiClient.Close()
	})

	videos := video.NewDBStore(db)
	extracts := extract.NewDBStore(db)
	cards := card.NewDBStore(db)
	reviews := review.NewDBStore(db)

	controller := pipeline.NewController(
		videos,
		extracts,
		cards,
		fetcher,
		analysis.NewAnalyzer(openaiClient, cfg.Pipeline, logger),
		card.NewGenerator(),
		logger,
	)
	pool := pipeline.NewWorkerPool(controller, videos, cfg.Pipeline, logger)
	service := pipeline.NewService(videos, pool, logger)
	manager := review.NewManager(reviews, cards, cfg.Review, logger)

	handler, err := server.NewHandler(service, manager, cfg.Review, logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("server.NewHandler() > %w", err)
	}

	mux := http.NewServeMux()
	handler.Mount(mux)
	mux.Handle("/healthz", healthHandler(db))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsMiddleware(h2c.NewHandler(mux, &http2.Server{}), cfg.Server.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Hooks run in reverse: stop accepting requests, let workers drain, then release clients.
	poolDone := make(chan struct{})
	app.AddShutdownHook("worker pool", func(ctx context.Context) error {
		select {
		case <-poolDone:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("workers did not drain: %w", ctx.Err())
		}
	})
	app.AddShutdownHook("http server", srv.Shutdown)

	// Nothing is processing yet, so any video still marked processing was
	// left behind by a stopped server.
	if _, err := controller.FailInterrupted(ctx); err != nil {
		logger.Warn("could not fail interrupted videos", zap.Error(err))
	}

	return app.Run(ctx, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer close(poolDone)
			return pool.Run(ctx)
		})
		g.Go(func() error {
			logger.Info("starting server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ListenAndServe > %w", err)
			}
			return nil
		})
		return g.Wait()
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

func newFetcher(cfg config.SourceConfig, logger *zap.Logger) (source.Fetcher, error) {
	if cfg.Kind == "local" {
		return local.NewFetcher(cfg.Local.Directory), nil
	}
	fetcher, err := web.NewFetcher(cfg.Web, logger)
	if err != nil {
		return nil, fmt.Errorf("web.NewFetcher() > %w", err)
	}
	return fetcher, nil
}

func healthHandler(db *sqlx.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
