// Package imagegen augments plans with generated slide images. Slides that
// carry an image_prompt but no image_ref get one image each, generated
// sequentially with per-slide fault isolation: one failed slide never
// aborts the pass.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/slideforge/slideforge/schema"
)

// DefaultModel is the image model used when none is configured.
const DefaultModel = "imagen-4.0-generate-001"

// DefaultBaseURL is the generative language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxResponseSize bounds image response bodies.
const maxResponseSize = 20 * 1024 * 1024 // 20MB

// Generator produces one PNG per prompt via the Imagen REST API.
type Generator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(g *Generator) { g.baseURL = url }
}

// WithModel sets the image model name.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Generator) { g.httpClient = hc }
}

// WithRateLimit caps generation calls per second. Image endpoints throttle
// aggressively, so the default is conservative.
func WithRateLimit(perSecond float64) Option {
	return func(g *Generator) { g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a generator.
func NewGenerator(apiKey string, opts ...Option) *Generator {
	g := &Generator{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// generateRequest is the predict-style wire format of the Imagen endpoint.
type generateRequest struct {
	Instances  []generateInstance `json:"instances"`
	Parameters generateParameters `json:"parameters"`
}

type generateInstance struct {
	Prompt string `json:"prompt"`
}

type generateParameters struct {
	SampleCount      int    `json:"sampleCount"`
	AspectRatio      string `json:"aspectRatio"`
	OutputMimeType   string `json:"outputMimeType"`
	PersonGeneration string `json:"personGeneration"`
}

type generateResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage produces one 16:9 PNG for the prompt. Person generation is
// disallowed; generated people on academic slides are a liability.
func (g *Generator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Instances: []generateInstance{{Prompt: prompt}},
		Parameters: generateParameters{
			SampleCount:      1,
			AspectRatio:      "16:9",
			OutputMimeType:   "image/png",
			PersonGeneration: "dont_allow",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:predict", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		excerpt := string(respBody)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200] + "..."
		}
		return nil, fmt.Errorf("image API error (status %d): %s", resp.StatusCode, excerpt)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Predictions) == 0 {
		return nil, fmt.Errorf("no image generated")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image bytes: %w", err)
	}
	return data, nil
}

// ImageSource generates one image per prompt. Generator implements it; a
// fake stands in for tests.
type ImageSource interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ProgressFunc reports augmentation progress over the eligible slides.
// It is called with the 1-based attempt number before each generation
// call, so the UI can show "generating 2/5" while the call is in flight.
type ProgressFunc func(current, total int)

// AugmentResult reports what an augmentation pass did.
type AugmentResult struct {
	// Plan is the augmented copy; the input plan is never modified.
	Plan *schema.PresentationPlan

	// Images holds the generated PNG bytes keyed by slide number.
	Images map[int][]byte

	// GeneratedCount is how many slides received an image.
	GeneratedCount int

	// Failures records slides whose generation failed, keyed by slide
	// number.
	Failures map[int]error
}

// Augmenter walks a plan and fills in generated images.
type Augmenter struct {
	source ImageSource
	logger *slog.Logger
}

// NewAugmenter creates an augmenter over an image source.
func NewAugmenter(source ImageSource, logger *slog.Logger) *Augmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Augmenter{source: source, logger: logger}
}

// AugmentPlan generates an image for every slide with an image_prompt and
// no image_ref, sequentially in slide order. A per-slide failure is logged
// and recorded but does not stop the pass. On success the slide's
// image_ref is set to generated_slide_N.png, and its layout is promoted to
// content_with_image unless it is already content_with_image or diagram.
func (a *Augmenter) AugmentPlan(ctx context.Context, p *schema.PresentationPlan, onProgress ProgressFunc) (*AugmentResult, error) {
	out := p.Clone()

	total := 0
	for _, s := range out.Slides {
		if eligible(&s) {
			total++
		}
	}

	result := &AugmentResult{
		Plan:     out,
		Images:   make(map[int][]byte),
		Failures: make(map[int]error),
	}

	current := 0
	for i := range out.Slides {
		s := &out.Slides[i]
		if !eligible(s) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		current++
		if onProgress != nil {
			onProgress(current, total)
		}

		data, err := a.source.GenerateImage(ctx, s.ImagePrompt)
		if err != nil {
			a.logger.Warn("image generation failed",
				"slide", s.SlideNumber, "error", err)
			result.Failures[s.SlideNumber] = err
			continue
		}

		s.ImageRef = fmt.Sprintf("generated_slide_%d.png", s.SlideNumber)
		result.Images[s.SlideNumber] = data
		if s.LayoutType != schema.LayoutContentWithImage && s.LayoutType != schema.LayoutDiagram {
			s.LayoutType = schema.LayoutContentWithImage
		}
		result.GeneratedCount++
	}

	return result, nil
}

// eligible reports whether a slide wants a generated image: it asked for
// one and does not already reference one.
func eligible(s *schema.SlideContent) bool {
	return s.ImagePrompt != "" && s.ImageRef == ""
}
