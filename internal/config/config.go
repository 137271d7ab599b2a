package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string `yaml:"type" toml:"type" validate:"oneof=tfidf openai ollama"`
	Model       string `yaml:"model,omitempty" toml:"model,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty" toml:"base_url,omitempty" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency" validate:"min=1,max=64"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs" validate:"min=0"`
	MaxRetries  int    `yaml:"max_retries" toml:"max_retries" validate:"min=0,max=10"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider" toml:"provider" validate:"oneof=openai ollama"`
	Model       string  `yaml:"model" toml:"model" validate:"required"`
	BaseURL     string  `yaml:"base_url,omitempty" toml:"base_url,omitempty" validate:"omitempty,url"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`
	Temperature float64 `yaml:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs" validate:"min=0"`
}

// ChunkerConfig configures how documents are split into segments.
type ChunkerConfig struct {
	Type              string `yaml:"type" toml:"type" validate:"oneof=window sentence recursive"`
	Size              int    `yaml:"size" toml:"size" validate:"min=1"`
	Overlap           int    `yaml:"overlap" toml:"overlap" validate:"min=0,ltfield=Size"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" toml:"sentences_per_chunk" validate:"min=1"`
	OverlapSentences  int    `yaml:"overlap_sentences" toml:"overlap_sentences" validate:"min=0,ltfield=SentencesPerChunk"`
}

// RetrievalConfig configures how many segments ground an answer.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k" toml:"top_k" validate:"min=1"`
	MinScore float64 `yaml:"min_score" toml:"min_score" validate:"gte=0,lte=1"`
}

// AnswerConfig configures prompt composition.
type AnswerConfig struct {
	MaxContextTokens int    `yaml:"max_context_tokens" toml:"max_context_tokens" validate:"min=1"`
	Encoding         string `yaml:"encoding" toml:"encoding"`
	GroundedPrompt   string `yaml:"grounded_prompt,omitempty" toml:"grounded_prompt,omitempty"`
	GeneralPrompt    string `yaml:"general_prompt,omitempty" toml:"general_prompt,omitempty"`
	Attribution      bool   `yaml:"attribution" toml:"attribution"`
}

// SessionConfig configures new conversations.
type SessionConfig struct {
	Greeting       string `yaml:"greeting" toml:"greeting"`
	IdleTimeoutMin int    `yaml:"idle_timeout_min" toml:"idle_timeout_min" validate:"min=0"`
}

// SummarizerConfig configures the document summary shown after upload.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences" toml:"max_sentences" validate:"min=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `yaml:"addr" toml:"addr" validate:"required"`
	BodyLimitMB int    `yaml:"body_limit_mb" toml:"body_limit_mb" validate:"min=1"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=text json"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `yaml:"embedder" toml:"embedder"`
	LLM        LLMConfig        `yaml:"llm" toml:"llm"`
	Chunker    ChunkerConfig    `yaml:"chunker" toml:"chunker"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" toml:"retrieval"`
	Answer     AnswerConfig     `yaml:"answer" toml:"answer"`
	Session    SessionConfig    `yaml:"session" toml:"session"`
	Summarizer SummarizerConfig `yaml:"summarizer" toml:"summarizer"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

// ValidationError lists the invalid fields of a config.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate checks field ranges and enumerations.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are decoded as TOML, anything else as YAML. Fields
// missing from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/vacciassist/config.yaml.
// If neither exists, it writes defaults to ~/.config/vacciassist/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
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
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

// DefaultUserConfigPath returns ~/.config/vacciassist/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vacciassist", "config.yaml"), nil
}

// APIKey reads the key from the configured environment variable.
func (c EmbedderConfig) APIKey() string { return envOrEmpty(c.APIKeyEnv) }

// APIKey reads the key from the configured environment variable.
func (c LLMConfig) APIKey() string { return envOrEmpty(c.APIKeyEnv) }

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "tfidf", Concurrency: 4, TimeoutSecs: 30, MaxRetries: 2},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.1,
			TimeoutSecs: 60,
		},
		Chunker:   ChunkerConfig{Type: "window", Size: 1000, Overlap: 200, SentencesPerChunk: 5, OverlapSentences: 1},
		Retrieval: RetrievalConfig{TopK: 4},
		Answer:    AnswerConfig{MaxContextTokens: 3000, Encoding: "cl100k_base"},
		Session: SessionConfig{
			Greeting:       "Hello! I am Vacci-Assist. I can help with technical questions or analyse vaccine leaflets.",
			IdleTimeoutMin: 60,
		},
		Summarizer: SummarizerConfig{MaxSentences: 3},
		Server:     ServerConfig{Addr: ":8080", BodyLimitMB: 20},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.APIKeyEnv == "" {
			cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		}
	case "ollama":
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "nomic-embed-text"
		}
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.Model == "gpt-4o" {
		cfg.LLM.Model = "llama3.1"
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 1
	}
}
