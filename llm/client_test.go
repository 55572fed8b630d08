package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
	}
}

func toolResponse(input string) string {
	return fmt.Sprintf(`{
		"id": "msg_test",
		"model": "test-model",
		"content": [
			{"type": "text", "text": "Building the plan."},
			{"type": "tool_use", "name": "emit_plan", "input": %s}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 100, "output_tokens": 50}
	}`, input)
}

func structuredReq() StructuredRequest {
	return StructuredRequest{
		System:          "You structure documents.",
		UserContent:     "A short paper.",
		ToolName:        "emit_plan",
		ToolDescription: "Emit the structured plan.",
		ResponseSchema:  map[string]any{"type": "object"},
	}
}

func TestCreateStructuredSuccess(t *testing.T) {
	var gotBody messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, toolResponse(`{"paper_title": "Test"}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	result, err := c.CreateStructured(context.Background(), structuredReq())
	require.NoError(t, err)

	assert.JSONEq(t, `{"paper_title": "Test"}`, string(result.Input))
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, 100, result.Usage.InputTokens)
	assert.NotEmpty(t, result.RequestID)

	// Tool forcing must be on the wire.
	require.NotNil(t, gotBody.ToolChoice)
	assert.Equal(t, "tool", gotBody.ToolChoice.Type)
	assert.Equal(t, "emit_plan", gotBody.ToolChoice.Name)
	require.Len(t, gotBody.Tools, 1)
	assert.Equal(t, "emit_plan", gotBody.Tools[0].Name)
}

func TestCreateStructuredRetriesTransientThenSucceeds(t *testing.T) {
	statuses := []int{http.StatusInternalServerError, http.StatusTooManyRequests}
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls < len(statuses) {
			w.WriteHeader(statuses[calls])
			calls++
			return
		}
		calls++
		fmt.Fprint(w, toolResponse(`{"ok": true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	c := NewClient("k", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	result, err := c.CreateStructured(context.Background(), structuredReq())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(result.Input))
	assert.Equal(t, 3, calls)

	// Exponential backoff between the two failures.
	require.Len(t, slept, 2)
	assert.Equal(t, time.Millisecond, slept[0])
	assert.Equal(t, 2*time.Millisecond, slept[1])
}

func TestCreateStructuredFatalOn4xx(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"message": "model not found"}}`)
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	_, err := c.CreateStructured(context.Background(), structuredReq())
	require.Error(t, err)

	assert.Equal(t, 1, calls, "fatal errors must not be retried")
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestCreateStructuredMissingToolBlockIsTransient(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"id": "msg", "model": "m", "content": [{"type": "text", "text": "no tool here"}], "stop_reason": "end_turn"}`)
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	c.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := c.CreateStructured(context.Background(), structuredReq())
	require.Error(t, err)
	assert.Equal(t, 3, calls, "missing tool_use block should exhaust the retry budget")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestCreateStructuredExhaustsRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	c.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := c.CreateStructured(context.Background(), structuredReq())
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "503")
}

func TestCreateStructuredThroughRelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-api-key"), "relay requests carry no client-side key")

		var wrapped relayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wrapped))
		assert.Equal(t, DefaultBaseURL+"/v1/messages", wrapped.URL)

		var inner messagesRequest
		require.NoError(t, json.Unmarshal(wrapped.Body, &inner))
		assert.Equal(t, "emit_plan", inner.ToolChoice.Name)

		fmt.Fprint(w, toolResponse(`{"via": "relay"}`))
	}))
	defer server.Close()

	c := NewClient("", WithRelay(server.URL), WithRetryConfig(fastRetry()))
	result, err := c.CreateStructured(context.Background(), structuredReq())
	require.NoError(t, err)
	assert.JSONEq(t, `{"via": "relay"}`, string(result.Input))
}

func TestCreateStructuredContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient("k", WithBaseURL(server.URL), WithRetryConfig(RetryConfig{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		MaxBackoff:  time.Second,
	}))
	cancel()

	_, err := c.CreateStructured(ctx, structuredReq())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCreateStructuredValidation(t *testing.T) {
	c := NewClient("k", WithRetryConfig(fastRetry()))

	req := structuredReq()
	req.ToolName = ""
	_, err := c.CreateStructured(context.Background(), req)
	assert.True(t, IsFatal(err))

	req = structuredReq()
	req.ResponseSchema = nil
	_, err = c.CreateStructured(context.Background(), req)
	assert.True(t, IsFatal(err))
}

func TestBackoffSchedule(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 2*time.Second, cfg.Backoff(0))
	assert.Equal(t, 4*time.Second, cfg.Backoff(1))
	assert.Equal(t, 8*time.Second, cfg.Backoff(2))
	assert.Equal(t, 30*time.Second, cfg.Backoff(10), "capped at MaxBackoff")
}
