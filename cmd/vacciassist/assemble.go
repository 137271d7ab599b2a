package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"vacciassist/internal/answer"
	"vacciassist/internal/chunker"
	"vacciassist/internal/config"
	"vacciassist/internal/domain"
	"vacciassist/internal/embedding"
	"vacciassist/internal/embedding/langchain"
	"vacciassist/internal/embedding/tfidf"
	"vacciassist/internal/extract"
	"vacciassist/internal/llm"
	"vacciassist/internal/session"
	"vacciassist/internal/summarizer"
)

var errMissingAPIKey = errors.New("missing API key")

// keyPrompt reads a secret from the terminal. Replaced in tests.
var keyPrompt = func(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errMissingAPIKey
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// resolveAPIKey reads the key from envName, prompting for it when allowed.
// The prompted key is exported to envName so later lookups reuse it.
func resolveAPIKey(envName string, interactive bool) (string, error) {
	if key := strings.TrimSpace(os.Getenv(envName)); key != "" {
		return key, nil
	}
	if !interactive {
		return "", fmt.Errorf("%w: set %s", errMissingAPIKey, envName)
	}
	key, err := keyPrompt(envName)
	if err != nil {
		return "", fmt.Errorf("%w: set %s", err, envName)
	}
	if key == "" {
		return "", fmt.Errorf("%w: set %s", errMissingAPIKey, envName)
	}
	_ = os.Setenv(envName, key)
	return key, nil
}

func httpClient(timeoutSecs int) *http.Client {
	if timeoutSecs <= 0 {
		return nil
	}
	return &http.Client{Timeout: time.Duration(timeoutSecs) * time.Second}
}

func buildEmbedder(cfg config.EmbedderConfig, interactive bool) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case llm.ProviderOpenAI, llm.ProviderOllama:
		lc := llm.Config{
			Provider:       cfg.Type,
			BaseURL:        cfg.BaseURL,
			EmbeddingModel: cfg.Model,
			HTTPClient:     httpClient(cfg.TimeoutSecs),
		}
		if cfg.Type == llm.ProviderOpenAI {
			key, err := resolveAPIKey(cfg.APIKeyEnv, interactive)
			if err != nil {
				return nil, err
			}
			lc.APIKey = key
		}
		client, err := llm.NewEmbeddingClient(lc)
		if err != nil {
			return nil, err
		}
		emb, err := langchain.New(cfg.Type+":"+cfg.Model, client)
		if err != nil {
			return nil, err
		}
		return embedding.WithRetry(emb, cfg.MaxRetries+1, 500*time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func buildChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "window", "":
		return chunker.NewWindowChunker(cfg.Size, cfg.Overlap), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	case "recursive":
		return chunker.NewRecursiveChunker(cfg.Size, cfg.Overlap), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func buildCompleter(cfg config.LLMConfig, interactive bool) (domain.Completer, error) {
	lc := llm.Config{
		Provider: cfg.Provider,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
	}
	if cfg.Provider == llm.ProviderOpenAI {
		key, err := resolveAPIKey(cfg.APIKeyEnv, interactive)
		if err != nil {
			return nil, err
		}
		lc.APIKey = key
	}
	model, err := llm.NewModel(lc)
	if err != nil {
		return nil, err
	}
	return llm.NewCompleter(model, cfg.Temperature, time.Duration(cfg.TimeoutSecs)*time.Second), nil
}

func buildCounter(encoding string) answer.TokenCounter {
	if encoding == "" {
		return answer.ApproxTokens
	}
	count, err := answer.NewTiktokenCounter(encoding)
	if err != nil {
		slog.Warn("token encoding unavailable, approximating", "encoding", encoding, "err", err)
		return answer.ApproxTokens
	}
	return count
}

// sessionFactory assembles the collaborators once and returns a constructor
// for sessions that share them.
func sessionFactory(cfg *config.AppConfig, completer domain.Completer, interactive bool) (func() *session.Session, error) {
	emb, err := buildEmbedder(cfg.Embedder, interactive)
	if err != nil {
		return nil, err
	}
	ch, err := buildChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	composer := answer.NewComposer(completer, answer.Config{
		GroundedPrompt:   cfg.Answer.GroundedPrompt,
		GeneralPrompt:    cfg.Answer.GeneralPrompt,
		MaxContextTokens: cfg.Answer.MaxContextTokens,
		Counter:          buildCounter(cfg.Answer.Encoding),
	})
	deps := session.Deps{
		Extractor:  extract.DefaultRegistry(),
		Chunker:    ch,
		Embedder:   emb,
		Answerer:   composer,
		Summarizer: summarizer.NewFrequencySummarizer(),
	}
	scfg := session.Config{
		TopK:             cfg.Retrieval.TopK,
		MinScore:         cfg.Retrieval.MinScore,
		Concurrency:      cfg.Embedder.Concurrency,
		Greeting:         cfg.Session.Greeting,
		Attribution:      cfg.Answer.Attribution,
		SummarySentences: cfg.Summarizer.MaxSentences,
	}
	slog.Debug("components assembled",
		"embedder", emb.Name(), "chunker", cfg.Chunker.Type, "llm", cfg.LLM.Provider+":"+cfg.LLM.Model)
	return func() *session.Session { return session.New(deps, scfg) }, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
}
