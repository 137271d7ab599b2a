// Package llm builds language-model and embedding backends with langchaingo
// and adapts them to the domain ports.
package llm

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultOllamaURL = "http://localhost:11434"
)

// Config selects and configures a backend.
type Config struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	// HTTPClient overrides the transport, e.g. to set a timeout.
	HTTPClient *http.Client
}

// NewModel returns a chat model for cfg.
func NewModel(cfg Config) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return newOpenAI(cfg, cfg.Model)
	case ProviderOllama:
		return newOllama(cfg, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// NewEmbeddingClient returns a client for cfg.EmbeddingModel.
func NewEmbeddingClient(cfg Config) (embeddings.EmbedderClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return newOpenAI(cfg, cfg.Model)
	case ProviderOllama:
		// ollama embeds with the chat model option
		return newOllama(cfg, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

func newOpenAI(cfg Config, model string) (*openai.LLM, error) {
	opts := []openai.Option{}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.EmbeddingModel))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return client, nil
}

func newOllama(cfg Config, model string) (*ollama.LLM, error) {
	url := cfg.BaseURL
	if url == "" {
		url = DefaultOllamaURL
	}
	opts := []ollama.Option{ollama.WithModel(model), ollama.WithServerURL(url)}
	if cfg.HTTPClient != nil {
		opts = append(opts, ollama.WithHTTPClient(cfg.HTTPClient))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return client, nil
}
