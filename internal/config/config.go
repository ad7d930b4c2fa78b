package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "RAGPIPE"

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	OpenAIAPIKey   string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `envconfig:"OPENAI_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"0" validate:"gte=0,lte=10"`

	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002" validate:"required"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536" validate:"gt=0"`

	ChatModel   string  `envconfig:"CHAT_MODEL" default:"gpt-3.5-turbo" validate:"required"`
	Temperature float32 `envconfig:"TEMPERATURE" default:"0.3" validate:"gte=0,lte=2"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" default:"500" validate:"gt=0"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000" validate:"gt=0"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200" validate:"gte=0,ltfield=ChunkSize"`

	SearchType string  `envconfig:"SEARCH_TYPE" default:"mmr" validate:"oneof=similarity mmr"`
	K          int     `envconfig:"K" default:"5" validate:"gt=0"`
	FetchK     int     `envconfig:"FETCH_K" default:"20" validate:"gtefield=K"`
	Lambda     float32 `envconfig:"LAMBDA" default:"0.7" validate:"gte=0,lte=1"`

	PersistDir string `envconfig:"PERSIST_DIR" default:"./chroma_db"`
	Collection string `envconfig:"COLLECTION"`

	DocumentsDir  string `envconfig:"DOCUMENTS_DIR" default:"./documents"`
	DocumentsGlob string `envconfig:"DOCUMENTS_GLOB" default:"**/*.pdf"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"ragpipe-collections"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

var validate = validator.New()

// Load reads .env (if present) and the environment. A missing API key or an
// out-of-range value is reported as a *domain.ConfigError.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, domain.NewConfigError(fieldFromEnvconfig(err), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return domain.NewConfigError("OPENAI_API_KEY", errors.New("required key missing value"))
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.NewConfigError(verrs[0].Field(), fmt.Errorf("failed %q validation", verrs[0].Tag()))
		}
		return domain.NewConfigError("", err)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) SearchOptions() domain.SearchOptions {
	return domain.SearchOptions{
		Type:   domain.SearchType(c.SearchType),
		K:      c.K,
		FetchK: c.FetchK,
		Lambda: c.Lambda,
	}
}

// EnsureCollection assigns a generated collection name when none is
// configured and returns the name in use.
func (c *Config) EnsureCollection() string {
	if c.Collection == "" {
		c.Collection = NewCollectionName()
	}
	return c.Collection
}

// NewCollectionName returns a fresh collection name of the form rag_<6 hex>.
func NewCollectionName() string {
	return "rag_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func fieldFromEnvconfig(err error) string {
	var perr *envconfig.ParseError
	if errors.As(err, &perr) {
		return perr.KeyName
	}
	return ""
}
