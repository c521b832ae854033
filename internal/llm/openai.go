package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OpenAICompleter uses any OpenAI-compatible chat completions API.
type OpenAICompleter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type openaiChatRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAICompleter creates a completer using an OpenAI-compatible API.
func NewOpenAICompleter(baseURL, apiKey, model string) *OpenAICompleter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAICompleter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(openaiChatRequest{
		Model:    c.model,
		Messages: []openaiMessage{{Role: "user", Content: prompt}},
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(b))
	}

	var result openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return result.Choices[0].Message.Content, nil
}

// NewFromEnv creates a completer from environment variables.
// LONGFORM_MEMORY_MODEL_PROVIDER: "anthropic" | "openai" | "" (disabled)
// LONGFORM_MEMORY_MODEL: model name
// LONGFORM_MEMORY_MODEL_URL: base URL override (openai provider)
// ANTHROPIC_API_KEY / OPENAI_API_KEY: credentials per provider
func NewFromEnv() Completer {
	provider := os.Getenv("LONGFORM_MEMORY_MODEL_PROVIDER")
	model := os.Getenv("LONGFORM_MEMORY_MODEL")

	switch provider {
	case "anthropic":
		return NewAnthropicCompleter(os.Getenv("ANTHROPIC_API_KEY"), model)
	case "openai":
		url := os.Getenv("LONGFORM_MEMORY_MODEL_URL")
		return NewOpenAICompleter(url, os.Getenv("OPENAI_API_KEY"), model)
	default:
		return nil // model extraction disabled
	}
}
