// Package relay implements a small forwarding server that keeps provider
// API keys off end-user machines. Clients POST a JSON envelope naming the
// upstream URL and the request body; the relay injects the matching secret
// header and passes the upstream response back verbatim.
package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream hosts the relay will forward to. Anything else is rejected so
// the relay cannot be used as an open proxy.
const (
	anthropicHost = "api.anthropic.com"
	googleHost    = "generativelanguage.googleapis.com"

	anthropicVersion = "2023-06-01"

	maxRequestBody = 10 << 20
)

// Server forwards envelope requests to known upstream APIs.
type Server struct {
	anthropicKey string
	googleKey    string
	client       *http.Client
	logger       *slog.Logger
	registry     *prometheus.Registry
	metrics      *serverMetrics
}

// Option configures a Server.
type Option func(*Server)

// WithAnthropicKey sets the secret injected for api.anthropic.com.
func WithAnthropicKey(key string) Option {
	return func(s *Server) { s.anthropicKey = key }
}

// WithGoogleKey sets the secret injected for generativelanguage.googleapis.com.
func WithGoogleKey(key string) Option {
	return func(s *Server) { s.googleKey = key }
}

// WithHTTPClient overrides the outbound client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.client = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a relay server. Keys left unset disable forwarding to
// the corresponding host.
func NewServer(opts ...Option) *Server {
	s := &Server{
		client:   &http.Client{Timeout: 180 * time.Second},
		logger:   slog.Default(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newServerMetrics(s.registry)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/relay", s.handleRelay).Methods(http.MethodPost)
	r.HandleFunc("/relay", s.handlePreflight).Methods(http.MethodOptions)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// envelope is the wire format clients send.
type envelope struct {
	URL  string          `json:"url"`
	Body json.RawMessage `json:"body"`
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	start := time.Now()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&env); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request envelope")
		return
	}
	target, err := url.Parse(env.URL)
	if err != nil || target.Scheme != "https" {
		s.writeError(w, http.StatusBadRequest, "url must be an absolute https URL")
		return
	}

	key, header, ok := s.secretFor(target.Hostname())
	if !ok {
		s.writeError(w, http.StatusForbidden, fmt.Sprintf("host %q is not relayed", target.Hostname()))
		return
	}
	if key == "" {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("no API key configured for %s", target.Hostname()))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, env.URL, bytes.NewReader(env.Body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upstream request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(header, key)
	if target.Hostname() == anthropicHost {
		req.Header.Set("anthropic-version", anthropicVersion)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("upstream request failed", "host", target.Hostname(), "error", err)
		s.metrics.observe(target.Hostname(), 0, time.Since(start))
		s.writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	s.metrics.observe(target.Hostname(), resp.StatusCode, time.Since(start))
	s.logger.Info("relayed request",
		"host", target.Hostname(),
		"status", resp.StatusCode,
		"duration", time.Since(start))

	// Upstream status and body pass through untouched so clients can
	// apply their own retry classification.
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// secretFor maps an upstream host to its key and header name.
func (s *Server) secretFor(host string) (key, header string, ok bool) {
	switch host {
	case anthropicHost:
		return s.anthropicKey, "x-api-key", true
	case googleHost:
		return s.googleKey, "x-goog-api-key", true
	default:
		return "", "", false
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// serverMetrics tracks relay traffic per upstream host.
type serverMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newServerMetrics(reg *prometheus.Registry) *serverMetrics {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slideforge_relay_requests_total",
			Help: "Relayed requests by upstream host and status code.",
		}, []string{"host", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slideforge_relay_request_duration_seconds",
			Help:    "Upstream round trip duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *serverMetrics) observe(host string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(host, label).Inc()
	m.duration.WithLabelValues(host).Observe(d.Seconds())
}
