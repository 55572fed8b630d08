package schema

// BulletPoint is one entry in a slide's bullet list. Level maps to visual
// nesting (0-3) and selects the bullet glyph in every renderer: level 0 is
// a filled circle, deeper levels a hollow one.
type BulletPoint struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
	Bold  bool   `json:"bold"`
}

// TableData carries tabular slide content. Rendering tolerates ragged rows;
// no symmetry between header and row lengths is enforced.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Caption string     `json:"caption"`
}

// Clone returns a deep copy of the table.
func (t *TableData) Clone() *TableData {
	if t == nil {
		return nil
	}
	cp := &TableData{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]string, len(t.Rows)),
		Caption: t.Caption,
	}
	for i, row := range t.Rows {
		cp.Rows[i] = append([]string(nil), row...)
	}
	return cp
}

// DiagramSpec describes a diagram in Mermaid notation with a plain-text
// fallback used when rasterization fails.
type DiagramSpec struct {
	DiagramType         DiagramType `json:"diagram_type"`
	MermaidCode         string      `json:"mermaid_code"`
	Caption             string      `json:"caption"`
	FallbackDescription string      `json:"fallback_description"`
}

// Clone returns a copy of the diagram spec.
func (d *DiagramSpec) Clone() *DiagramSpec {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// SlideContent is one slide of a presentation plan.
//
// The layout must be structurally consistent with the populated fields:
// LayoutTable requires Table, LayoutDiagram requires a non-empty
// MermaidCode, LayoutContentWithImage requires ImageRef or ImagePrompt.
// plan.ValidateAndFix demotes violating slides to LayoutContent.
type SlideContent struct {
	SlideNumber int           `json:"slide_number"`
	LayoutType  SlideLayout   `json:"layout_type"`
	Title       string        `json:"title"`
	Subtitle    string        `json:"subtitle"`
	Bullets     []BulletPoint `json:"bullets"`
	Notes       string        `json:"notes"`
	Table       *TableData    `json:"table"`
	Diagram     *DiagramSpec  `json:"diagram"`
	ImageRef    string        `json:"image_ref"`
	ImagePrompt string        `json:"image_prompt"`
	KeyMessage  string        `json:"key_message"`
}

// Clone returns a deep copy of the slide.
func (s *SlideContent) Clone() SlideContent {
	cp := *s
	cp.Bullets = append([]BulletPoint(nil), s.Bullets...)
	cp.Table = s.Table.Clone()
	cp.Diagram = s.Diagram.Clone()
	return cp
}

// PresentationPlan is the central artifact of the pipeline: an ordered
// collection of typed slides plus deck-level metadata.
//
// Invariant: TotalSlides == len(Slides) and Slides[i].SlideNumber == i+1,
// 1-based and contiguous. Every structural mutation must re-establish this
// via Normalize (plan.ValidateAndFix does so as part of validation).
type PresentationPlan struct {
	PaperTitle      string         `json:"paper_title"`
	LectureTitle    string         `json:"lecture_title"`
	TotalSlides     int            `json:"total_slides"`
	AudienceLevel   AudienceLevel  `json:"audience_level"`
	Slides          []SlideContent `json:"slides"`
	GenerationNotes string         `json:"generation_notes"`
}

// Clone returns a deep copy of the plan. Used for history snapshots, so it
// must not share any mutable state with the receiver.
func (p *PresentationPlan) Clone() *PresentationPlan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Slides = make([]SlideContent, len(p.Slides))
	for i := range p.Slides {
		cp.Slides[i] = p.Slides[i].Clone()
	}
	return &cp
}

// Normalize reassigns contiguous 1-based slide numbers and recomputes
// TotalSlides. Idempotent.
func (p *PresentationPlan) Normalize() {
	for i := range p.Slides {
		p.Slides[i].SlideNumber = i + 1
	}
	p.TotalSlides = len(p.Slides)
}

// Title returns the best available deck title.
func (p *PresentationPlan) Title() string {
	if p.LectureTitle != "" {
		return p.LectureTitle
	}
	if p.PaperTitle != "" {
		return p.PaperTitle
	}
	return "Presentation"
}
