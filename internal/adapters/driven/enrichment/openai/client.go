// Package openai provides an enrichment adapter using the OpenAI
// chat-completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.Enricher = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	// maxInputChars caps the text sent upstream per call.
	maxInputChars = 8000

	maxKeywords = 15
	maxTopics   = 10
)

// Config holds configuration for the OpenAI enrichment client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Client derives keywords, topics and summaries via the OpenAI API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	Temperature float64             `json:"temperature"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// extraction is the JSON payload the model is asked to produce.
type extraction struct {
	Keywords []string `json:"keywords"`
	Topics   []string `json:"topics"`
	Summary  string   `json:"summary"`
}

// New creates an OpenAI enrichment client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// ModelName returns the model identifier in use.
func (c *Client) ModelName() string {
	return c.model
}

// Enrich analyses the text and returns keywords, topics and a summary.
func (c *Client) Enrich(ctx context.Context, text string) (*driven.Enrichment, error) {
	prompt := fmt.Sprintf(`Analyze the following document and extract:
1. Keywords: important terms and concepts (maximum %d)
2. Topics: main themes and subjects (maximum %d)
3. Summary: a concise summary in 150-200 words

Respond with a single JSON object of the form
{"keywords": ["..."], "topics": ["..."], "summary": "..."}
and nothing else.

Document content:
%s`, maxKeywords, maxTopics, truncate(text, maxInputChars))

	content, err := c.chatCompletion(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEnrichment, err)
	}

	var result extraction
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &result); err != nil {
		return nil, fmt.Errorf("%w: malformed model output: %v", domain.ErrEnrichment, err)
	}
	if result.Summary == "" && len(result.Keywords) == 0 && len(result.Topics) == 0 {
		return nil, fmt.Errorf("%w: empty model output", domain.ErrEnrichment)
	}

	return &driven.Enrichment{
		Keywords: capList(result.Keywords, maxKeywords),
		Topics:   capList(result.Topics, maxTopics),
		Summary:  result.Summary,
	}, nil
}

// Summarise produces a summary of roughly lengthWords words.
func (c *Client) Summarise(ctx context.Context, text string, lengthWords int) (string, error) {
	prompt := fmt.Sprintf(`Summarise the following document in approximately %d words.
Respond with the summary text only.

Document content:
%s`, lengthWords, truncate(text, maxInputChars))

	content, err := c.chatCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEnrichment, err)
	}

	summary := strings.TrimSpace(content)
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", domain.ErrEnrichment)
	}
	return summary, nil
}

// chatCompletion sends one user message and returns the model's reply.
func (c *Client) chatCompletion(ctx context.Context, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatCompletionMsg{
			{Role: "user", Content: prompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("API error: %s (%s)", completion.Error.Message, completion.Error.Type)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return completion.Choices[0].Message.Content, nil
}

// truncate caps s at n bytes, backing off to a rune boundary so the
// cut never splits a multi-byte character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// stripCodeFence removes a surrounding ```json fence if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// capList bounds a list to at most n entries.
func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
