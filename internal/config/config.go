package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	Addr               string `yaml:"addr" validate:"required"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs" validate:"gte=0"`
}

// RequestTimeout returns the per-request deadline, or zero when disabled.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// OpenAIConfig holds connection details shared by the embedding and generation clients.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	Model     string `yaml:"model" validate:"required"`
	BatchSize int    `yaml:"batch_size" validate:"gte=1"`
}

// GeneratorConfig configures the chat-completion model.
type GeneratorConfig struct {
	Model        string  `yaml:"model" validate:"required"`
	Temperature  float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int     `yaml:"max_tokens" validate:"gte=1"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// VectorStoreConfig selects and configures the vector index implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type" validate:"oneof=pinecone qdrant pgvector memory"`
	Pinecone *PineconeConfig `yaml:"pinecone,omitempty"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	PgVector *PgVectorConfig `yaml:"pgvector,omitempty"`
	Memory   *MemoryConfig   `yaml:"memory,omitempty"`
}

// PineconeConfig contains connection details for a Pinecone index.
type PineconeConfig struct {
	Host        string `yaml:"host" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env" validate:"required"`
	Namespace   string `yaml:"namespace"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PgVectorConfig contains connection details for a PostgreSQL database with pgvector.
type PgVectorConfig struct {
	DSNEnv    string `yaml:"dsn_env" validate:"required"`
	Table     string `yaml:"table" validate:"required"`
	Dimension int    `yaml:"dimension" validate:"gte=1"`
}

// MemoryConfig points the in-process index at a JSON snapshot of embedded records.
type MemoryConfig struct {
	Path string `yaml:"path"`
}

// ChunkerConfig configures how oversized documentation chunks are split during ingestion.
type ChunkerConfig struct {
	MaxChars         int `yaml:"max_chars" validate:"gte=1"`
	OverlapSentences int `yaml:"overlap_sentences" validate:"gte=0"`
}

// SourcesConfig holds the values used for matches that lack title or url metadata.
type SourcesConfig struct {
	DefaultTitle string `yaml:"default_title"`
	DefaultURL   string `yaml:"default_url"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Sources     SourcesConfig     `yaml:"sources"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config data, fills in defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/supportbot/config.yaml.
// If neither exists, it writes defaults to ~/.config/supportbot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the structural constraints of the configuration.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	vs := c.VectorStore
	switch {
	case vs.Type == "pinecone" && vs.Pinecone == nil:
		return errors.New("invalid config: vector_store.pinecone section missing")
	case vs.Type == "qdrant" && vs.Qdrant == nil:
		return errors.New("invalid config: vector_store.qdrant section missing")
	case vs.Type == "pgvector" && vs.PgVector == nil:
		return errors.New("invalid config: vector_store.pgvector section missing")
	}
	return nil
}

// APIKey resolves the secret stored in the environment variable named by envName.
func APIKey(envName string) (string, error) {
	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", envName)
	}
	return key, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "supportbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		VectorStore: VectorStoreConfig{
			Type: "pinecone",
			Pinecone: &PineconeConfig{
				Host:      "https://crossmint-docs.svc.pinecone.io",
				APIKeyEnv: "PINECONE_API_KEY",
			},
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 60
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 30
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-ada-002"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 20
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-3.5-turbo"
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.1
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 800
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pinecone"
	}
	if p := cfg.VectorStore.Pinecone; p != nil {
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "PINECONE_API_KEY"
		}
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = 15
		}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Collection == "" {
			q.Collection = "crossmint_docs"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if pg := cfg.VectorStore.PgVector; pg != nil {
		if pg.DSNEnv == "" {
			pg.DSNEnv = "DATABASE_URL"
		}
		if pg.Table == "" {
			pg.Table = "documents"
		}
		if pg.Dimension == 0 {
			pg.Dimension = 1536
		}
	}
	if cfg.Chunker.MaxChars == 0 {
		cfg.Chunker.MaxChars = 2000
	}
	if cfg.Sources.DefaultTitle == "" {
		cfg.Sources.DefaultTitle = "Crossmint Documentation"
	}
	if cfg.Sources.DefaultURL == "" {
		cfg.Sources.DefaultURL = "https://docs.crossmint.com"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// applyEnvOverrides lets deployments adjust the listen address and log level without editing YAML.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("SUPPORTBOT_ADDR"); v != "" {
		cfg.Server.Addr = v
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if v := os.Getenv("SUPPORTBOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
