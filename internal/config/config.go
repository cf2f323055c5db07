package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all runtime parameters. Values come from the environment
// (optionally seeded from a .env file by the caller), with defaults matching
// the documented pipeline parameters.
type Config struct {
	Addr          string `env:"ADDR" envDefault:":8000"`
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`

	EmbedBaseURL string `env:"EMBED_BASE_URL" envDefault:"https://api.openai.com/v1"`
	EmbedModel   string `env:"EMBED_MODEL" envDefault:"text-embedding-3-small"`
	EmbedAPIKey  string `env:"EMBED_API_KEY"`

	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.3"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"2048"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"12000"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"1200"`
	TopK         int `env:"TOP_K" envDefault:"4"`

	// IndexFile is derived from DataDir by the caller, not read from env.
	IndexFile string
}

func Init(cfg interface{}) error {
	return env.Parse(cfg)
}
