package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/psds-microservice/apihub-support/internal/metrics"
	"github.com/psds-microservice/apihub-support/internal/model"
)

// Client produces one assistant answer for a role-tagged message sequence.
type Client interface {
	Complete(ctx context.Context, messages []model.Turn) (string, error)
	Model() string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

var ErrNoChoices = errors.New("llm: no choices in response")

type client struct {
	openai *openai.Client
	model  string
}

// New builds a client for any OpenAI-compatible endpoint (Groq by default).
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	m := cfg.Model
	if m == "" {
		m = "llama3-8b-8192"
	}
	return &client{openai: openai.NewClientWithConfig(oc), model: m}, nil
}

func (c *client) Model() string { return c.model }

func (c *client) Complete(ctx context.Context, messages []model.Turn) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
		// temperature 0 is omitted by go-openai
		Temperature: math.SmallestNonzeroFloat32,
	}

	start := time.Now()
	resp, err := c.openai.CreateChatCompletion(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(c.model, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}

	log.Debug().
		Str("model", c.model).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("llm: chat completed")

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(turns []model.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		switch t.Role {
		case model.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case model.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return out
}
