// SPDX-License-Identifier: MIT

package disambig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultGeminiBase = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient resolves candidates through the Gemini generateContent REST
// API with a JSON response contract. Calls are paced by a rate limiter to
// stay polite toward the API across a large playlist.
type GeminiClient struct {
	base    string
	apiKey  string
	model   string
	http    *http.Client
	limiter *rate.Limiter
}

// GeminiOption customizes the client.
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API endpoint (tests point this at a stub server).
func WithBaseURL(base string) GeminiOption {
	return func(c *GeminiClient) { c.base = strings.TrimRight(base, "/") }
}

// WithRateLimit sets the sustained call rate.
func WithRateLimit(callsPerSecond float64) GeminiOption {
	return func(c *GeminiClient) { c.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1) }
}

// NewGeminiClient builds a client for the given model ("gemini-2.0-flash" etc).
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		base:    defaultGeminiBase,
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// verdict is the JSON contract the model is instructed to emit.
type verdict struct {
	MatchFound bool   `json:"match_found"`
	SelectedID string `json:"selected_id"`
	Confidence string `json:"confidence"`
}

// Resolve implements Disambiguator. A model answer that cannot be parsed, or
// that declines, is reported as no-match without error; transport failures
// surface as errors for the caller to log.
func (c *GeminiClient) Resolve(ctx context.Context, name string, candidates map[string]string) (string, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	prompt, err := buildPrompt(name, candidates)
	if err != nil {
		return "", false, err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config: genConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.1,
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.base, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("call model: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("model returned status %d", res.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", false, nil
	}

	text := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var v verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &v); err != nil {
		// A malformed answer is a decline, not a failure.
		return "", false, nil
	}
	if !v.MatchFound || v.SelectedID == "" {
		return "", false, nil
	}
	return v.SelectedID, true, nil
}

func buildPrompt(name string, candidates map[string]string) (string, error) {
	options, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a TV metadata specialist.\n\n")
	b.WriteString("GOAL: map the source channel to the correct reference id from the options.\n\n")
	fmt.Fprintf(&b, "SOURCE CHANNEL: %q\n\n", name)
	b.WriteString("AVAILABLE OPTIONS (display name -> id):\n")
	b.Write(options)
	b.WriteString("\n\nRULES:\n")
	b.WriteString("- Exact matches (ignoring case) are best.\n")
	b.WriteString("- \"US\", \"East\", \"West\", \"HD\", \"FHD\" suffixes can be ignored if the core channel matches.\n")
	b.WriteString("- If multiple regional options exist and the source does not specify, prefer East.\n")
	b.WriteString("- If no reliable match exists, decline.\n\n")
	b.WriteString("Respond with JSON only: {\"match_found\": bool, \"selected_id\": \"id from options or empty\", \"confidence\": \"high/medium/low\"}\n")
	return b.String(), nil
}
