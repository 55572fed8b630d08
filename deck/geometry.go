// Package deck compiles presentation plans into positioned slide
// primitives: boxes, text frames, pictures, and tables with explicit
// inch-based frames. It is pure layout; serializing the primitives into a
// file format is the pptx package's job, which keeps every geometry rule
// testable without unzipping anything.
package deck

// Rect is a position and size in inches on the slide canvas.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Canvas dimensions, 16:9 widescreen.
const (
	SlideWidth  = 13.333
	SlideHeight = 7.5
)

// Margins.
const (
	MarginLeft   = 1.0
	MarginTop    = 0.3
	MarginRight  = 1.0
	MarginBottom = 0.5
)

// Content area below the title bar.
const (
	ContentWidth  = 11.333
	ContentTop    = 1.6
	ContentHeight = 5.4
)

// Title bar.
const (
	TitleTop        = 0.3
	TitleHeight     = 1.0
	TitleSeparatorY = 1.35
)

// Accent bar beside the title.
const (
	AccentBarWidth  = 0.08
	AccentBarHeight = 1.0
	AccentBarLeft   = 1.0
	AccentBarTop    = 0.3
)

// Title text, right of the accent bar.
const (
	TitleTextLeft  = 1.3
	TitleTextWidth = 11.0
)

// Two-column layout.
const (
	TwoColGap       = 0.4
	TwoColLeftWidth = 5.467
	TwoColRightLeft = 6.867
	TwoColRightWide = 5.467
)

// Image area for content_with_image.
const (
	ImageWidth         = 5.0
	ImageHeight        = 4.5
	ImageLeft          = 7.333
	TextWithImageWidth = 5.833
)

// Diagram area.
const (
	DiagramAreaLeft   = 1.0
	DiagramAreaTop    = 1.6
	DiagramAreaWidth  = 11.333
	DiagramAreaHeight = 5.0
)

// Slide number frame.
const (
	SlideNumLeft   = 12.0
	SlideNumTop    = 7.0
	SlideNumWidth  = 1.0
	SlideNumHeight = 0.4
)

// XPercent converts a horizontal position in inches to a fraction of the
// slide width, for preview surfaces that lay out in percentages.
func XPercent(inches float64) float64 { return inches / SlideWidth * 100 }

// YPercent converts a vertical position in inches to a fraction of the
// slide height.
func YPercent(inches float64) float64 { return inches / SlideHeight * 100 }
