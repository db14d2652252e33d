package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"exam-rag/internal/config"
)

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Generator sends assembled messages to a chat model and returns its text.
type Generator struct {
	llm         llms.Model
	model       string
	temperature float64
}

// NewGenerator builds an OpenAI-compatible client from cfg. cfg.BaseURL points
// it at OpenRouter; empty means the OpenAI default endpoint.
func NewGenerator(cfg config.LLMConfig) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}
	g := NewGeneratorWithModel(llm, cfg.Temperature)
	g.model = cfg.Model
	return g, nil
}

// NewGeneratorWithModel wraps an existing model, e.g. a fake in tests.
func NewGeneratorWithModel(llm llms.Model, temperature float64) *Generator {
	if temperature == 0 {
		temperature = config.DefaultTemperature
	}
	return &Generator{llm: llm, temperature: temperature}
}

// Generate runs one completion. The text is returned as is; cleaning it up is
// the caller's job.
func (g *Generator) Generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	log.Debug().
		Str("model", g.model).
		Float64("temperature", g.temperature).
		Int("messages", len(messages)).
		Msg("Generating content")

	resp, err := g.llm.GenerateContent(ctx, messages, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

// statusCode matches the HTTP status in provider errors, e.g.
// "API returned unexpected status code: 401" or "error, status code: 429".
var statusCode = regexp.MustCompile(`status(?: code)?[:=]?\s*(\d{3})\b`)

// Hint turns a generation error into advice for the user, or "" when there is none.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, config.ErrNoCredentials) {
		return "請設定 OPENROUTER_API_KEY 或 OPENAI_API_KEY"
	}
	msg := strings.ToLower(err.Error())
	status := ""
	if m := statusCode.FindStringSubmatch(msg); m != nil {
		status = m[1]
	}
	switch {
	case status == "401", strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "incorrect api key"), strings.Contains(msg, "unauthorized"):
		return "請檢查 API Key 是否正確"
	case status == "402", strings.Contains(msg, "insufficient credits"),
		strings.Contains(msg, "insufficient_quota"), strings.Contains(msg, "exceeded your current quota"):
		return "API 額度不足 (Insufficient credits)，請儲值或更換 API Key"
	case status == "429", strings.Contains(msg, "rate limit"):
		return "請求過於頻繁，請稍後再試"
	}
	return ""
}
