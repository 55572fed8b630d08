// Package schema defines the typed data model shared by the generation
// pipeline and the renderers: presentation plans, slides, parsed documents,
// and lecturer style profiles. It is the single source of truth for the
// JSON shapes exchanged with the LLM.
package schema

// SourceType identifies where a parsed document came from.
type SourceType string

// Source types.
const (
	SourcePDF     SourceType = "pdf"
	SourceText    SourceType = "text"
	SourceDocx    SourceType = "docx"
	SourceURL     SourceType = "url"
	SourceUnknown SourceType = "unknown"
)

// AudienceLevel selects the instructional register of generated slides.
type AudienceLevel string

// Audience levels.
const (
	AudiencePharmacyUndergrad AudienceLevel = "pharmacy_undergrad"
	AudienceGradStudent       AudienceLevel = "grad_student"
	AudienceResearcher        AudienceLevel = "researcher"
	AudienceGeneral           AudienceLevel = "general"
)

// ParseAudienceLevel maps a string to a known audience level.
// Unknown values fall back to AudienceGradStudent.
func ParseAudienceLevel(s string) AudienceLevel {
	switch AudienceLevel(s) {
	case AudiencePharmacyUndergrad, AudienceGradStudent, AudienceResearcher, AudienceGeneral:
		return AudienceLevel(s)
	default:
		return AudienceGradStudent
	}
}

// ExplanationDepth controls how much detail the generated slides carry.
type ExplanationDepth string

// Explanation depths.
const (
	DepthBrief    ExplanationDepth = "brief"
	DepthStandard ExplanationDepth = "standard"
	DepthDetailed ExplanationDepth = "detailed"
)

// SlideLayout is the visual contract of a slide. The deck compiler and the
// PPTX writer both switch exhaustively over these values; anything else is
// rendered with the content layout.
type SlideLayout string

// Slide layouts.
const (
	LayoutTitle            SlideLayout = "title"
	LayoutSectionHeader    SlideLayout = "section_header"
	LayoutContent          SlideLayout = "content"
	LayoutContentWithImage SlideLayout = "content_with_image"
	LayoutTwoColumn        SlideLayout = "two_column"
	LayoutTable            SlideLayout = "table"
	LayoutDiagram          SlideLayout = "diagram"
	LayoutKeyTakeaway      SlideLayout = "key_takeaway"
)

// Valid reports whether l is one of the eight known layouts.
func (l SlideLayout) Valid() bool {
	switch l {
	case LayoutTitle, LayoutSectionHeader, LayoutContent, LayoutContentWithImage,
		LayoutTwoColumn, LayoutTable, LayoutDiagram, LayoutKeyTakeaway:
		return true
	}
	return false
}

// ParseSlideLayout maps a string to a known layout, falling back to
// LayoutContent for anything unrecognized.
func ParseSlideLayout(s string) SlideLayout {
	if l := SlideLayout(s); l.Valid() {
		return l
	}
	return LayoutContent
}

// DiagramType classifies the diagram a slide wants rendered.
type DiagramType string

// Diagram types.
const (
	DiagramFlowchart       DiagramType = "flowchart"
	DiagramComparisonTable DiagramType = "comparison_table"
	DiagramSequence        DiagramType = "sequence"
	DiagramTimeline        DiagramType = "timeline"
)

// ParseDiagramType maps a string to a known diagram type.
// Unknown values fall back to DiagramFlowchart.
func ParseDiagramType(s string) DiagramType {
	switch DiagramType(s) {
	case DiagramFlowchart, DiagramComparisonTable, DiagramSequence, DiagramTimeline:
		return DiagramType(s)
	default:
		return DiagramFlowchart
	}
}

// Language selects the output language of generated slide content.
type Language string

// Output languages.
const (
	LanguageJapanese Language = "ja"
	LanguageEnglish  Language = "en"
)
