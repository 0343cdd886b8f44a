package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"LiteratureHarvester/internal/config"
	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/ports"
)

// Client implements ports.Generator backed by OpenAI-compatible chat APIs.
type Client struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Generator = (*Client)(nil)

// NewClient builds a generation client from configuration.
func NewClient(cfg config.GenerationConfig) *Client {
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate posts the prompt as a user message and returns only the
// generated continuation, never the echoed prompt.
func (c *Client) Generate(ctx context.Context, prompt string, p domain.GenerationParams) (string, error) {
	if c == nil {
		return "", fmt.Errorf("generation client is nil")
	}
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("generation client misconfigured")
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": prompt},
		},
	}
	if p.MaxNewTokens > 0 {
		payload["max_tokens"] = p.MaxNewTokens
	}
	// zero is a valid temperature (greedy decoding), always send it
	payload["temperature"] = p.Temperature
	if p.RepetitionPenalty > 0 {
		payload["repetition_penalty"] = p.RepetitionPenalty
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("generation error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}

	return out.Choices[0].Message.Content, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You maintain a running literature summary over scientific abstracts."
	}
	return prompt
}
