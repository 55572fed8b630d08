package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport sends every outbound request to the test upstream
// regardless of the envelope URL, so the relay's host checks still see
// the real provider hostnames.
type rewriteTransport struct {
	upstream *httptest.Server
	seen     []*http.Request
	bodies   []string
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	rt.seen = append(rt.seen, req.Clone(req.Context()))
	rt.bodies = append(rt.bodies, string(body))

	u, _ := url.Parse(rt.upstream.URL)
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	req.Body = io.NopCloser(bytes.NewReader(body))
	return http.DefaultTransport.RoundTrip(req)
}

func newTestServer(t *testing.T, upstreamHandler http.HandlerFunc, opts ...Option) (*httptest.Server, *rewriteTransport) {
	t.Helper()
	upstream := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstream.Close)

	rt := &rewriteTransport{upstream: upstream}
	opts = append(opts, WithHTTPClient(&http.Client{Transport: rt}))
	srv := httptest.NewServer(NewServer(opts...).Handler())
	t.Cleanup(srv.Close)
	return srv, rt
}

func postEnvelope(t *testing.T, srv *httptest.Server, targetURL, body string) *http.Response {
	t.Helper()
	env, err := json.Marshal(map[string]any{
		"url":  targetURL,
		"body": json.RawMessage(body),
	})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/relay", "application/json", bytes.NewReader(env))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRelayInjectsAnthropicSecret(t *testing.T) {
	srv, rt := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1"}`))
	}, WithAnthropicKey("sk-ant-secret"))

	resp := postEnvelope(t, srv, "https://api.anthropic.com/v1/messages", `{"model":"m"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"id":"msg_1"}`, string(body))

	require.Len(t, rt.seen, 1)
	up := rt.seen[0]
	assert.Equal(t, "sk-ant-secret", up.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", up.Header.Get("anthropic-version"))
	assert.Equal(t, "/v1/messages", up.URL.Path)
	assert.JSONEq(t, `{"model":"m"}`, rt.bodies[0])
}

func TestRelayInjectsGoogleSecret(t *testing.T) {
	srv, rt := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, WithGoogleKey("g-secret"))

	resp := postEnvelope(t, srv,
		"https://generativelanguage.googleapis.com/v1beta/models/imagen-4.0-generate-001:predict",
		`{"instances":[]}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rt.seen, 1)
	assert.Equal(t, "g-secret", rt.seen[0].Header.Get("x-goog-api-key"))
	assert.Empty(t, rt.seen[0].Header.Get("anthropic-version"))
}

func TestRelayPassesUpstreamErrorsVerbatim(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}, WithAnthropicKey("k"))

	resp := postEnvelope(t, srv, "https://api.anthropic.com/v1/messages", `{}`)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "rate_limit_error")
}

func TestRelayRejectsUnknownHost(t *testing.T) {
	srv, rt := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, WithAnthropicKey("k"))

	resp := postEnvelope(t, srv, "https://evil.example.com/steal", `{}`)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, rt.seen, "nothing may be forwarded to unlisted hosts")
}

func TestRelayRejectsWhenKeyMissing(t *testing.T) {
	srv, rt := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	resp := postEnvelope(t, srv, "https://api.anthropic.com/v1/messages", `{}`)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "no API key configured")
	assert.Empty(t, rt.seen)
}

func TestRelayRejectsBadEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, WithAnthropicKey("k"))

	resp, err := http.Post(srv.URL+"/relay", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2 := postEnvelope(t, srv, "http://api.anthropic.com/v1/messages", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode, "plain http upstream is rejected")
}

func TestRelayPreflight(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/relay", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestRelayMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, WithAnthropicKey("k"))

	postEnvelope(t, srv, "https://api.anthropic.com/v1/messages", `{}`)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Contains(t, string(body), "slideforge_relay_requests_total")
	assert.Contains(t, string(body), `host="api.anthropic.com"`)
	assert.Contains(t, string(body), `status="200"`)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
