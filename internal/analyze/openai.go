// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openaiTemperature keeps analyses close to the source text.
const openaiTemperature = 0.3

// openaiAPIURL is the chat completions endpoint. Package-level var for test
// substitution.
var openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend calls the OpenAI chat completions API. Per prd005-analysis R3.2.
type OpenAIBackend struct {
	APIKey    string
	Model     string
	MaxTokens int

	// BaseURL overrides the default API base ("https://api.openai.com/v1"),
	// e.g. for a compatible proxy.
	BaseURL string

	Client *http.Client
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

func (o *OpenAIBackend) Name() string {
	return "openai/" + o.Model
}

// Analyze sends the prompt to the OpenAI API and returns the first choice's
// message content.
func (o *OpenAIBackend) Analyze(ctx context.Context, prompt string) (string, error) {
	reqBody := openaiRequest{
		Model: o.Model,
		Messages: []openaiMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokensOr(o.MaxTokens),
		Temperature: openaiTemperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := httpClientOr(o.Client).Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}

	if len(oResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return oResp.Choices[0].Message.Content, nil
}

func (o *OpenAIBackend) endpoint() string {
	if o.BaseURL != "" {
		return strings.TrimSuffix(o.BaseURL, "/") + "/chat/completions"
	}
	return openaiAPIURL
}
