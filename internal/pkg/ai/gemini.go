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
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"
	geminiMaxTokens      = 2048
)

// GeminiClient talks to the generateContent REST endpoint.
type GeminiClient struct {
	apiKey      string
	model       string
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

func NewGeminiClient(apiKey, model string, temperature float64, baseURL string) *GeminiClient {
	if model == "" {
		model = defaultGeminiModel
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *GeminiClient) Name() string { return "gemini" }

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{Temperature: c.temperature, MaxOutputTokens: geminiMaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned empty content")
	}
	text := parsed.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("gemini returned empty content")
	}
	return text, nil
}

func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	content, err := c.GenerateContent(ctx, prompt+jsonSuffix)
	if err != nil {
		return nil, err
	}
	return extractJSON(content)
}
