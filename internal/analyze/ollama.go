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

const defaultOllamaModel = "llama3"

// ollamaAPIURL is the local Ollama generate endpoint. Package-level var for
// test substitution.
var ollamaAPIURL = "http://localhost:11434/api/generate"

// OllamaBackend calls a local or remote Ollama server. No API key is
// required. Per prd005-analysis R3.2.
type OllamaBackend struct {
	Model string

	// BaseURL overrides the default server ("http://localhost:11434").
	BaseURL string

	Client *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *OllamaBackend) Name() string {
	return "ollama/" + o.Model
}

// Analyze sends the prompt to Ollama in non-streaming JSON mode and returns
// the response text.
func (o *OllamaBackend) Analyze(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  o.Model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
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

	resp, err := httpClientOr(o.Client).Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ollama returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding Ollama response: %w", err)
	}
	return oResp.Response, nil
}

func (o *OllamaBackend) endpoint() string {
	if o.BaseURL != "" {
		return strings.TrimSuffix(o.BaseURL, "/") + "/api/generate"
	}
	return ollamaAPIURL
}
