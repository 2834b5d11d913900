package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// StoreDir holds the persisted index and chunk-store artifacts;
	// SourceDir holds the precomputed *_embeddings.json ingestion files.
	StoreDir  string `envconfig:"STORE_DIR" default:"faiss_db"`
	SourceDir string `envconfig:"SOURCE_DIR" default:"chunked_texts"`

	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	AnswerModel         string `envconfig:"ANSWER_MODEL"`

	RerankerEndpoint string `envconfig:"RERANKER_ENDPOINT"`

	// Optional Postgres catalog for synced documents and search logs.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docsift-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// SyncInterval in seconds for the background source-bucket sync
	// worker; 0 disables it.
	SyncIntervalSeconds int `envconfig:"SYNC_INTERVAL_SECONDS" default:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCSIFT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.EmbeddingDimensions)
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasReranker() bool {
	return c.RerankerEndpoint != ""
}

func (c *Config) HasCatalog() bool {
	return c.DatabaseURL != ""
}
