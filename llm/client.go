// Package llm is the transport layer in front of the Anthropic messages
// API. Its central operation is CreateStructured: a single request that
// forces the model to answer through a named tool whose input must match a
// supplied JSON schema, which is the only reliable way to get
// machine-parseable output instead of free text.
//
// Transient failures (429, 5xx, network errors, responses without the
// expected tool_use block) are retried with exponential backoff up to a
// fixed attempt budget; everything else fails immediately with the status
// and body captured in the error. Before a missing tool_use block is
// treated as transient, text blocks are scanned for a salvageable JSON
// object (see ExtractJSON).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultBaseURL is the upstream API endpoint used for direct calls.
const DefaultBaseURL = "https://api.anthropic.com"

// anthropicVersion is the API version header value.
const anthropicVersion = "2023-06-01"

// maxResponseSize limits response bodies to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// defaultMaxTokens bounds structured generations; plans are large.
const defaultMaxTokens = 16384

// defaultTemperature keeps structured output close to deterministic.
const defaultTemperature = 0.3

// Client calls the messages API, either directly (API key attached as a
// header) or through a credential relay that injects the key server-side.
type Client struct {
	baseURL    string
	relayURL   string
	apiKey     string
	model      string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRelay routes requests through a credential relay instead of calling
// the upstream directly. The relay receives {url, body} and injects the
// provider secret itself, so no API key is needed client-side.
func WithRelay(url string) Option {
	return func(c *Client) { c.relayURL = url }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client. The API key may be empty when requests go
// through a relay.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		retry:   DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // plans take a while to generate
		},
		logger: slog.Default(),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StructuredRequest describes one structured-generation call.
type StructuredRequest struct {
	// System is the system prompt.
	System string

	// UserContent is the single user message.
	UserContent string

	// ToolName names the forced tool; the response must invoke it.
	ToolName string

	// ToolDescription tells the model what the tool produces.
	ToolDescription string

	// ResponseSchema is the JSON schema the tool input must satisfy.
	ResponseSchema map[string]any

	// MaxTokens limits the response length. 0 uses the default.
	MaxTokens int

	// Temperature controls randomness. nil uses the default.
	Temperature *float64
}

// Usage reports token consumption of a call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StructuredResult is the typed output of a structured call.
type StructuredResult struct {
	// RequestID correlates logs across retries of one logical call.
	RequestID string

	// Input is the raw tool input, guaranteed to be a JSON value but not
	// validated beyond that. Callers decode and validate it themselves.
	Input json.RawMessage

	// Model is the model that answered.
	Model string

	// Usage is the token consumption, when reported.
	Usage Usage
}

// messagesRequest is the wire format of the messages endpoint.
type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	ToolChoice  *toolChoice   `json:"tool_choice,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// messagesResponse is the wire format of a successful response.
type messagesResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

// relayRequest wraps a call for the credential relay.
type relayRequest struct {
	URL  string          `json:"url"`
	Body json.RawMessage `json:"body"`
}

// CreateStructured issues a tool-forced generation call and returns the
// tool input. Transient failures are retried per the retry policy; the
// last error is returned once the budget is exhausted.
func (c *Client) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResult, error) {
	if req.ToolName == "" {
		return nil, NewFatalError(fmt.Errorf("tool name is required"))
	}
	if req.ResponseSchema == nil {
		return nil, NewFatalError(fmt.Errorf("response schema is required"))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature
	if temperature == nil {
		t := defaultTemperature
		temperature = &t
	}

	body, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      req.System,
		Messages:    []wireMessage{{Role: "user", Content: req.UserContent}},
		Tools: []wireTool{{
			Name:        req.ToolName,
			Description: req.ToolDescription,
			InputSchema: req.ResponseSchema,
		}},
		ToolChoice: &toolChoice{Type: "tool", Name: req.ToolName},
	})
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	requestID := uuid.New().String()
	var lastErr error

	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, body)
		if err == nil {
			result, extractErr := extractToolResult(resp, req.ToolName)
			if extractErr == nil {
				result.RequestID = requestID
				return result, nil
			}
			err = extractErr
		}
		lastErr = err

		if IsFatal(err) {
			return nil, err
		}
		if attempt < c.retry.MaxAttempts-1 {
			backoff := c.retry.Backoff(attempt)
			c.logger.Warn("generation attempt failed, retrying",
				"request_id", requestID,
				"attempt", attempt+1,
				"max_attempts", c.retry.MaxAttempts,
				"backoff", backoff,
				"error", err)
			if sleepErr := c.sleep(ctx, backoff); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("generation failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// doRequest executes one HTTP round trip, through the relay when one is
// configured.
func (c *Client) doRequest(ctx context.Context, body []byte) (*messagesResponse, error) {
	url := c.baseURL + "/v1/messages"
	payload := body
	if c.relayURL != "" {
		wrapped, err := json.Marshal(relayRequest{URL: url, Body: body})
		if err != nil {
			return nil, NewFatalError(fmt.Errorf("marshal relay request: %w", err))
		}
		url = c.relayURL
		payload = wrapped
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.relayURL == "" {
		if c.apiKey != "" {
			httpReq.Header.Set("x-api-key", c.apiKey)
		}
		httpReq.Header.Set("anthropic-version", anthropicVersion)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	var resp messagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, NewTransientError(fmt.Errorf("parse response: %w", err))
	}
	return &resp, nil
}

// extractToolResult pulls the forced tool invocation out of a response.
// When no tool_use block is present, any text blocks are scanned for a
// salvageable JSON object before the response is declared a transient
// failure.
func extractToolResult(resp *messagesResponse, toolName string) (*StructuredResult, error) {
	for _, block := range resp.Content {
		if block.Type == "tool_use" && len(block.Input) > 0 {
			return &StructuredResult{
				Input: block.Input,
				Model: resp.Model,
				Usage: resp.Usage,
			}, nil
		}
	}
	for _, block := range resp.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if salvaged := ExtractJSON(block.Text); salvaged != "" && json.Valid([]byte(salvaged)) {
			return &StructuredResult{
				Input: json.RawMessage(salvaged),
				Model: resp.Model,
				Usage: resp.Usage,
			}, nil
		}
	}
	return nil, NewTransientError(fmt.Errorf("no tool_use block for %q in response (stop_reason %s)", toolName, resp.StopReason))
}

// classifyHTTPError sorts a non-200 status into transient or fatal,
// keeping a body excerpt for diagnosis.
func classifyHTTPError(statusCode int, body []byte) error {
	excerpt := string(body)
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	err := fmt.Errorf("API error (status %d): %s", statusCode, excerpt)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	default:
		return NewFatalError(err)
	}
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
