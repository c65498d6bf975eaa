package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"hotline/models"

	openai "github.com/sashabaranov/go-openai"
)

// BackendMode selects how completions are produced. The mode is resolved
// once at startup, never per call.
type BackendMode string

const (
	// ModeLocal only uses the local inference server.
	ModeLocal BackendMode = "local"
	// ModeHosted only uses the hosted API.
	ModeHosted BackendMode = "hosted"
	// ModeHybrid tries the local server first and falls back to the hosted
	// API once, if a credential is configured.
	ModeHybrid BackendMode = "hybrid"
)

// Completer produces a completion for an ordered message sequence.
type Completer interface {
	Complete(ctx context.Context, model string, messages []models.ChatMessage, maxTokens int) (string, error)
}

// CompletionClient sends assembled prompts to a text-generation backend.
// Generation is slow, so the HTTP timeout is generous; there is no streaming
// and no retry budget beyond the single local-to-hosted fallback.
type CompletionClient struct {
	mode        BackendMode
	localURL    string
	hostedModel string
	httpClient  *http.Client
	hosted      *openai.Client // nil when no credential is configured
}

// CompletionOption configures a CompletionClient.
type CompletionOption func(*CompletionClient)

// WithHostedClient injects a pre-built hosted API client (used by tests).
func WithHostedClient(client *openai.Client) CompletionOption {
	return func(c *CompletionClient) {
		c.hosted = client
	}
}

// NewCompletionClient builds the client for the given mode. apiKey is the
// hosted-API credential; when empty the hosted backend is unavailable and
// hybrid mode degrades to local-only.
func NewCompletionClient(mode BackendMode, localURL, hostedURL, hostedModel, apiKey string, timeout time.Duration, opts ...CompletionOption) *CompletionClient {
	c := &CompletionClient{
		mode:        mode,
		localURL:    localURL,
		hostedModel: hostedModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = hostedURL
		c.hosted = openai.NewClientWithConfig(cfg)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// backendAttempt is one entry of the ordered fallback chain.
type backendAttempt struct {
	name string
	call func(ctx context.Context, model string, messages []models.ChatMessage, maxTokens int) (string, error)
}

// attempts returns the ordered list of backends to try for the configured
// mode. The fallback chain is explicit: hybrid is local then hosted, and the
// hosted entry only exists when a credential is present.
func (c *CompletionClient) attempts() []backendAttempt {
	local := backendAttempt{name: "local", call: c.completeLocal}
	hosted := backendAttempt{name: "hosted", call: c.completeHosted}

	switch c.mode {
	case ModeLocal:
		return []backendAttempt{local}
	case ModeHosted:
		return []backendAttempt{hosted}
	default:
		if c.hosted != nil {
			return []backendAttempt{local, hosted}
		}
		return []backendAttempt{local}
	}
}

// Complete runs the fallback chain and returns the first successful
// completion. When every attempt fails the returned error aggregates each
// backend's failure cause.
func (c *CompletionClient) Complete(ctx context.Context, model string, messages []models.ChatMessage, maxTokens int) (string, error) {
	var failures []error
	for _, attempt := range c.attempts() {
		answer, err := attempt.call(ctx, model, messages, maxTokens)
		if err == nil {
			return answer, nil
		}
		log.Printf("Completion backend %q failed: %v", attempt.name, err)
		failures = append(failures, fmt.Errorf("%s: %w", attempt.name, err))
	}
	return "", errors.Join(failures...)
}

type localCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
}

type localCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *CompletionClient) completeLocal(ctx context.Context, model string, messages []models.ChatMessage, maxTokens int) (string, error) {
	payload := localCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.localURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot reach local inference server at %s (is it running?): %w", c.localURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("local inference server returned status %d: %s", resp.StatusCode, string(body))
	}

	var completion localCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("local inference server returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

func (c *CompletionClient) completeHosted(ctx context.Context, model string, messages []models.ChatMessage, maxTokens int) (string, error) {
	if c.hosted == nil {
		return "", fmt.Errorf("hosted API credential not configured")
	}

	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		apiMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	// The hosted API serves its own model catalog; the per-request model
	// names a local checkpoint and does not apply there.
	_ = model
	resp, err := c.hosted.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.hostedModel,
		Messages:    apiMessages,
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("hosted API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("hosted API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
