// Package export assembles a presentation plan, a lecturer profile, and
// generated images into a finished PPTX file. Diagram slides are
// pre-rendered concurrently before assembly; a failed render downgrades
// that one slide to its textual fallback instead of failing the export.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/slideforge/slideforge/deck"
	"github.com/slideforge/slideforge/diagram"
	"github.com/slideforge/slideforge/pptx"
	"github.com/slideforge/slideforge/schema"
)

// defaultDiagramTimeout bounds one diagram render plus conversion.
const defaultDiagramTimeout = 15 * time.Second

// Exporter builds PPTX files from plans.
type Exporter struct {
	renderer       diagram.Renderer
	logger         *slog.Logger
	diagramTimeout time.Duration
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) { e.logger = logger }
}

// WithDiagramTimeout bounds each diagram render.
func WithDiagramTimeout(d time.Duration) Option {
	return func(e *Exporter) { e.diagramTimeout = d }
}

// NewExporter creates an exporter. A nil renderer disables diagram
// rendering; diagram slides then always use their fallback text.
func NewExporter(renderer diagram.Renderer, opts ...Option) *Exporter {
	if renderer == nil {
		renderer = diagram.NullRenderer{}
	}
	e := &Exporter{
		renderer:       renderer,
		logger:         slog.Default(),
		diagramTimeout: defaultDiagramTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result reports what an export produced.
type Result struct {
	SlideCount       int
	DiagramsRendered int
	DiagramsFailed   int
}

// ExportPPTX writes the plan as a PPTX file to w. Images holds generated
// or extracted slide images keyed by slide number.
func (e *Exporter) ExportPPTX(ctx context.Context, p *schema.PresentationPlan, profile *schema.LecturerProfile, images map[int][]byte, w io.Writer) (*Result, error) {
	if p == nil || len(p.Slides) == 0 {
		return nil, fmt.Errorf("nothing to export: plan is empty")
	}

	diagramImages, failed := e.preRenderDiagrams(ctx, p)

	compiler := deck.NewCompiler(profile)
	slides := compiler.Compile(p, deck.Assets{
		SlideImages:   images,
		DiagramImages: diagramImages,
	})

	doc := &pptx.Document{
		Title:  p.Title(),
		Author: "SlideForge",
		Slides: slides,
	}
	if err := pptx.Write(w, doc); err != nil {
		return nil, fmt.Errorf("write pptx: %w", err)
	}

	return &Result{
		SlideCount:       len(slides),
		DiagramsRendered: len(diagramImages),
		DiagramsFailed:   failed,
	}, nil
}

// preRenderDiagrams renders every diagram slide concurrently and waits
// for all of them to settle. Failures are logged per slide and the slide
// falls back to text; a slow or broken render service must never block
// the whole export beyond the per-diagram timeout.
func (e *Exporter) preRenderDiagrams(ctx context.Context, p *schema.PresentationPlan) (map[int][]byte, int) {
	type target struct {
		slideNumber int
		spec        *schema.DiagramSpec
	}
	var targets []target
	for i := range p.Slides {
		s := &p.Slides[i]
		if s.LayoutType == schema.LayoutDiagram && s.Diagram != nil && s.Diagram.MermaidCode != "" {
			targets = append(targets, target{s.SlideNumber, s.Diagram})
		}
	}
	if len(targets) == 0 {
		return map[int][]byte{}, 0
	}

	var (
		mu      sync.Mutex
		images  = make(map[int][]byte, len(targets))
		failed  int
		wg      sync.WaitGroup
	)
	for _, tg := range targets {
		wg.Add(1)
		go func(tg target) {
			defer wg.Done()
			renderCtx, cancel := context.WithTimeout(ctx, e.diagramTimeout)
			defer cancel()

			data, err := e.renderer.RenderPNG(renderCtx, tg.spec)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				e.logger.Warn("diagram render failed, using fallback text",
					"slide", tg.slideNumber, "error", err)
				return
			}
			images[tg.slideNumber] = data
		}(tg)
	}
	wg.Wait()

	return images, failed
}
