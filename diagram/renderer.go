// Package diagram renders Mermaid diagram specs to PNG images for
// embedding in exported decks. Rendering is best-effort throughout: a
// slide whose diagram cannot be rendered falls back to its textual
// description rather than blocking the export.
package diagram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/slideforge/slideforge/schema"
)

// DefaultKrokiURL is the public Kroki rendering service.
const DefaultKrokiURL = "https://kroki.io"

// maxImageSize bounds rendered diagram downloads.
const maxImageSize = 20 * 1024 * 1024 // 20MB

// Renderer turns a diagram spec into PNG bytes.
type Renderer interface {
	RenderPNG(ctx context.Context, spec *schema.DiagramSpec) ([]byte, error)
}

// KrokiRenderer renders Mermaid through a Kroki server. Kroki accepts the
// raw diagram source as a POST body and returns the rendered image.
type KrokiRenderer struct {
	baseURL    string
	httpClient *http.Client
}

// KrokiOption configures a KrokiRenderer.
type KrokiOption func(*KrokiRenderer)

// WithBaseURL points the renderer at a self-hosted Kroki instance.
func WithBaseURL(url string) KrokiOption {
	return func(r *KrokiRenderer) { r.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) KrokiOption {
	return func(r *KrokiRenderer) { r.httpClient = hc }
}

// NewKrokiRenderer creates a renderer against a Kroki server.
func NewKrokiRenderer(opts ...KrokiOption) *KrokiRenderer {
	r := &KrokiRenderer{
		baseURL: DefaultKrokiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderPNG renders the spec's Mermaid source to PNG.
func (r *KrokiRenderer) RenderPNG(ctx context.Context, spec *schema.DiagramSpec) ([]byte, error) {
	if spec == nil || spec.MermaidCode == "" {
		return nil, fmt.Errorf("no mermaid code to render")
	}

	url := r.baseURL + "/mermaid/png"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(spec.MermaidCode)))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read rendered image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		excerpt := string(body)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200] + "..."
		}
		return nil, fmt.Errorf("render failed (status %d): %s", resp.StatusCode, excerpt)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("render returned an empty image")
	}
	return body, nil
}

// NullRenderer never renders anything. Exports configured with it fall
// back to the diagram's textual description on every slide.
type NullRenderer struct{}

// RenderPNG always reports that rendering is unavailable.
func (NullRenderer) RenderPNG(context.Context, *schema.DiagramSpec) ([]byte, error) {
	return nil, fmt.Errorf("diagram rendering is disabled")
}
