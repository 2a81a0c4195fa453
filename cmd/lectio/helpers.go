package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/analysis"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/inference/openai"
	"github.com/at-ishikawa/lectio/internal/logging"
	"github.com/at-ishikawa/lectio/internal/pipeline"
	"github.com/at-ishikawa/lectio/internal/review"
	"github.com/at-ishikawa/lectio/internal/source"
	"github.com/at-ishikawa/lectio/internal/source/local"
	"github.com/at-ishikawa/lectio/internal/source/web"
	"github.com/at-ishikawa/lectio/internal/video"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// environment holds what every database-backed command needs.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB

	videos   *video.DBStore
	extracts *extract.DBStore
	cards    *card.DBStore
	reviews  *review.DBStore
}

func openEnvironment() (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Mode, debugMode)
	if err != nil {
		return nil, fmt.Errorf("logging.New() > %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Sync(logger)
		return nil, fmt.Errorf("database.Open() > %w", err)
	}

	env := &environment{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		videos:   video.NewDBStore(db),
		extracts: extract.NewDBStore(db),
		cards:    card.NewDBStore(db),
		reviews:  review.NewDBStore(db),
	}
	if cfg.Database.MigrateOnStart {
		if err := env.migrate(); err != nil {
			env.Close()
			return nil, err
		}
	}
	return env, nil
}

func (env *environment) migrate() error {
	if err := database.Migrate(env.db, env.logger); err != nil {
		return fmt.Errorf("database.Migrate() > %w", err)
	}
	return nil
}

func (env *environment) Close() {
	if err := env.db.Close(); err != nil {
		env.logger.Warn("failed to close database", zap.Error(err))
	}
	logging.Sync(env.logger)
}

func (env *environment) reviewManager() *review.Manager {
	return review.NewManager(env.reviews, env.cards, env.cfg.Review, env.logger)
}

// controller wires the processing stages. The returned close func releases the inference client.
func (env *environment) controller() (*pipeline.Controller, func(), error) {
	if env.cfg.OpenAI.APIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	fetcher, err := newFetcher(env.cfg.Source, env.logger)
	if err != nil {
		return nil, nil, err
	}

	openaiClient := openai.NewClient(env.cfg.OpenAI, env.logger)
	analyzer := analysis.NewAnalyzer(openaiClient, env.cfg.Pipeline, env.logger)
	controller := pipeline.NewController(
		env.videos,
		env.extracts,
		env.cards,
		fetcher,
		analyzer,
		card.NewGenerator(),
		env.logger,
	)
	return controller, func() { _ = openaiClient.Close() }, nil
}

func newFetcher(cfg config.SourceConfig, logger *zap.Logger) (source.Fetcher, error) {
	switch cfg.Kind {
	case "local":
		return local.NewFetcher(cfg.Local.Directory), nil
	case "web", "":
		fetcher, err := web.NewFetcher(cfg.Web, logger)
		if err != nil {
			return nil, fmt.Errorf("web.NewFetcher() > %w", err)
		}
		return fetcher, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}
