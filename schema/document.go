package schema

// ExtractedFigure is a figure pulled out of a source document. ImageData
// holds the raw image bytes when the extractor provides them; FigureID is
// how the LLM references the figure from a slide's image_ref field.
type ExtractedFigure struct {
	PageNumber int    `json:"page_number"`
	ImageData  []byte `json:"image_data,omitempty"`
	Caption    string `json:"caption"`
	FigureID   string `json:"figure_id"`
}

// PaperSection is one heading-delimited span of a source document.
type PaperSection struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// ParsedDocument is the normalized source record the structurer consumes.
// It is produced once per input (file parse, URL fetch, or manual text) and
// treated as immutable afterwards.
type ParsedDocument struct {
	Title        string            `json:"title"`
	Authors      []string          `json:"authors"`
	Abstract     string            `json:"abstract"`
	Sections     []PaperSection    `json:"sections"`
	Figures      []ExtractedFigure `json:"figures"`
	FullMarkdown string            `json:"full_markdown"`
	SourceType   SourceType        `json:"source_type"`
	TotalPages   int               `json:"total_pages"`
}
