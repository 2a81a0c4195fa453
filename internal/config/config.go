package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Source    SourceConfig    `mapstructure:"source"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Review    ReviewConfig    `mapstructure:"review"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Outputs   OutputsConfig   `mapstructure:"outputs"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host" validate:"required"`
	Port            int               `mapstructure:"port" validate:"min=1,max=65535"`
	Database        string            `mapstructure:"database" validate:"required"`
	Username        string            `mapstructure:"username" validate:"required"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
	MigrateOnStart  bool              `mapstructure:"migrate_on_start"`
}

type OpenAIConfig struct {
	APIKey           string `mapstructure:"api_key"`
	Model            string `mapstructure:"model"`
	BaseURL          string `mapstructure:"base_url" validate:"omitempty,url"`
	MaxRetryAttempts uint   `mapstructure:"max_retry_attempts"`
}

type SourceConfig struct {
	// Kind selects the transcript source: "web" fetches pages and transcripts over HTTP,
	// "local" reads YAML transcripts from a directory.
	Kind  string            `mapstructure:"kind" validate:"oneof=web local"`
	Web   WebSourceConfig   `mapstructure:"web"`
	Local LocalSourceConfig `mapstructure:"local"`
}

type WebSourceConfig struct {
	PageBaseURL       string `mapstructure:"page_base_url" validate:"omitempty,url"`
	TranscriptBaseURL string `mapstructure:"transcript_base_url" validate:"omitempty,url"`
	TranscriptAPIKey  string `mapstructure:"transcript_api_key"`
	CacheDirectory    string `mapstructure:"cache_directory"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" validate:"min=1"`
	MaxRetryAttempts  uint   `mapstructure:"max_retry_attempts"`
}

type LocalSourceConfig struct {
	Directory string `mapstructure:"directory"`
}

type PipelineConfig struct {
	Workers                int `mapstructure:"workers" validate:"min=1"`
	QueueSize              int `mapstructure:"queue_size" validate:"min=1"`
	AnalysisTimeoutSeconds int `mapstructure:"analysis_timeout_seconds" validate:"min=1"`
	MinTranscriptLength    int `mapstructure:"min_transcript_length" validate:"min=0"`
	RequeueIntervalSeconds int `mapstructure:"requeue_interval_seconds" validate:"min=1"`
}

// RequeueInterval returns how often pending videos are handed to the workers again.
func (c PipelineConfig) RequeueInterval() time.Duration {
	return time.Duration(c.RequeueIntervalSeconds) * time.Second
}

// AnalysisTimeout returns the bound on a single concept extraction call.
func (c PipelineConfig) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutSeconds) * time.Second
}

type ReviewConfig struct {
	MaxSessionCards     int  `mapstructure:"max_session_cards" validate:"min=1,max=50"`
	DefaultSessionCards int  `mapstructure:"default_session_cards" validate:"min=1,max=50"`
	SubmitRetryAttempts uint `mapstructure:"submit_retry_attempts" validate:"min=1"`
}

type LoggingConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=development production"`
}

type TemplatesConfig struct {
	StudySheetTemplate string `mapstructure:"study_sheet_template" validate:"omitempty,file"`
}

type OutputsConfig struct {
	ExportDirectory string `mapstructure:"export_directory"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/lectio")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "lectio")
	v.SetDefault("database.username", "lectio")
	v.SetDefault("database.migrate_on_start", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.max_retry_attempts", 3)
	v.SetDefault("source.kind", "web")
	v.SetDefault("source.web.page_base_url", "https://www.youtube.com")
	v.SetDefault("source.web.transcript_base_url", "http://localhost:8090")
	v.SetDefault("source.web.cache_directory", filepath.Join("cache", "transcripts"))
	v.SetDefault("source.web.timeout_seconds", 30)
	v.SetDefault("source.web.max_retry_attempts", 2)
	v.SetDefault("source.local.directory", filepath.Join("transcripts"))
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 64)
	v.SetDefault("pipeline.analysis_timeout_seconds", 120)
	v.SetDefault("pipeline.min_transcript_length", 200)
	v.SetDefault("pipeline.requeue_interval_seconds", 30)
	v.SetDefault("review.max_session_cards", 50)
	v.SetDefault("review.default_session_cards", 20)
	v.SetDefault("review.submit_retry_attempts", 3)
	v.SetDefault("logging.mode", "development")
	// Template is optional - if not specified, the embedded study sheet template is used
	v.SetDefault("templates.study_sheet_template", "")
	v.SetDefault("outputs.export_directory", filepath.Join("outputs", "study-sheets"))

	// Bind OpenAI config to environment variables only (not from config file)
	if err := v.BindEnv("openai.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("openai.model", "OPENAI_MODEL"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_MODEL environment variable: %w", err)
	}

	if err := v.BindEnv("source.web.transcript_api_key", "TRANSCRIPT_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind TRANSCRIPT_API_KEY environment variable: %w", err)
	}

	// Bind database password to environment variable
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if cfg.Review.DefaultSessionCards > cfg.Review.MaxSessionCards {
		cfg.Review.DefaultSessionCards = cfg.Review.MaxSessionCards
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
