package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1"

// HTTPClient is an Advisor backed by an OpenAI-compatible chat completions
// endpoint. A zero-value APIKey makes every call return ErrNotConfigured so
// callers can construct one unconditionally and let the fallback path take
// over when no key is set.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// Config configures an HTTPClient.
type Config struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Model   string
}

// NewHTTPClient builds an HTTPClient. BaseURL defaults to the OpenAI API;
// Model defaults to "gpt-4o-mini" when unset.
func NewHTTPClient(cfg Config) *HTTPClient {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &HTTPClient{client: client, baseURL: baseURL, apiKey: strings.TrimSpace(cfg.APIKey), model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends a single-turn chat completion request. It never retries;
// any transport, status, or decode error is returned as-is for the caller's
// fallback path to handle.
func (c *HTTPClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (Response, error) {
	if c.apiKey == "" {
		return Response{}, ErrNotConfigured
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("advisor: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return Response{}, fmt.Errorf("advisor: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("advisor: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("advisor: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("advisor: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("advisor: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("advisor: empty choices in response")
	}

	return Response{
		Text:             parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}
