package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"exam-rag/internal/config"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// NewEmbedder creates the embedder selected by cfg.Provider
func NewEmbedder(cfg config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().
		Str("provider", cfg.Provider).
		Str("base_url", cfg.BaseURL).
		Str("embedding_model", cfg.Model).
		Msg("Creating embedder")

	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaEmbedder(cfg)
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// new ollama embedder
func NewOllamaEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// NewOpenAIEmbedder works for any OpenAI-compatible embeddings endpoint
func NewOpenAIEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// EmbeddingFunc adapts an embedder to the vector store's embedding function.
func EmbeddingFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text: %w", err)
		}
		return vec, nil
	}
}
