package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/pkg/e"
)

const promptTemplate = "Given the following product image description: '%s', suggest a product name, category, and a short description."

var errNotConfigured = fmt.Errorf("OPENAI_API_KEY is not set")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SuggestionClient запрашивает у OpenAI Chat Completions подсказку метаданных продукта.
type SuggestionClient struct {
	client *http.Client
	cfg    *cfg.OpenAICfg
}

func NewSuggestionClient(cfg *cfg.OpenAICfg) *SuggestionClient {
	return &SuggestionClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Suggest возвращает текст первого варианта ответа модели.
func (s *SuggestionClient) Suggest(ctx context.Context, description string) (string, error) {
	const op = "SuggestionClient.Suggest"

	if s.cfg.ApiKey == "" {
		return "", e.Wrap(op, errNotConfigured)
	}

	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(promptTemplate, description)},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", e.Wrap(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", e.Wrap(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.ApiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", e.Wrap(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", e.Wrap(op, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", e.Wrap(op, fmt.Errorf("status %d: invalid response: %w", resp.StatusCode, err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", e.Wrap(op, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	if len(parsed.Choices) == 0 {
		return "", e.Wrap(op, fmt.Errorf("empty choices"))
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
