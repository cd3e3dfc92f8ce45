package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
	defaultDeepSeekModel   = "deepseek-chat"
	deepSeekMaxTokens      = 4096
)

// DeepSeekClient talks to the OpenAI-style chat completions endpoint.
type DeepSeekClient struct {
	apiKey      string
	model       string
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

func NewDeepSeekClient(apiKey, model string, temperature float64, baseURL string) *DeepSeekClient {
	if model == "" {
		model = defaultDeepSeekModel
	}
	if baseURL == "" {
		baseURL = defaultDeepSeekBaseURL
	}
	return &DeepSeekClient{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *DeepSeekClient) Name() string { return "deepseek" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *DeepSeekClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   deepSeekMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal deepseek request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create deepseek request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read deepseek response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode deepseek response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("deepseek returned empty content")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *DeepSeekClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	content, err := c.GenerateContent(ctx, prompt+jsonSuffix)
	if err != nil {
		return nil, err
	}
	return extractJSON(content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
