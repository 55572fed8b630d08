package deck

// Alignment values for text frames.
const (
	AlignLeft   = "l"
	AlignCenter = "ctr"
	AlignRight  = "r"
)

// Vertical anchor values for text frames.
const (
	AnchorTop    = "t"
	AnchorMiddle = "ctr"
	AnchorBottom = "b"
)

// Bullet glyphs.
const (
	GlyphFilledBullet = '•' // level-0 bullets
	GlyphOpenCircle   = '○' // nested bullets
	GlyphStar         = '★' // key takeaway bullets
)

// Element is one positioned primitive on a slide. The concrete types are
// Box, Text, Picture, and Table.
type Element interface {
	element()
}

// Box is a filled rectangle, optionally outlined.
type Box struct {
	Frame Rect

	// Fill is a bare RRGGBB value; empty means no fill.
	Fill string

	// LineColor and LineWidthPt describe the outline; a zero width means
	// no outline.
	LineColor   string
	LineWidthPt float64
}

func (Box) element() {}

// Run is a styled span of text within a paragraph.
type Run struct {
	Text     string
	FontFace string
	SizePt   int
	Color    string
	Bold     bool
}

// Bullet is the marker in front of a bulleted paragraph.
type Bullet struct {
	Glyph rune
	Color string
}

// Paragraph is one paragraph of a text frame.
type Paragraph struct {
	Runs          []Run
	Bullet        *Bullet
	IndentLevel   int
	SpaceBeforePt int
	SpaceAfterPt  int
	Align         string
}

// Text is a positioned text frame.
type Text struct {
	Frame      Rect
	Paragraphs []Paragraph
	Anchor     string
}

func (Text) element() {}

// Picture is a positioned raster image.
type Picture struct {
	Frame Rect

	// Data holds the image bytes; Format is "png" or "jpeg".
	Data   []byte
	Format string
}

func (Picture) element() {}

// TableCell is one styled cell.
type TableCell struct {
	Text        string
	FontFace    string
	SizePt      int
	Color       string
	Fill        string
	Bold        bool
	BorderColor string
}

// TableRow is one row of cells.
type TableRow struct {
	Cells []TableCell
}

// Table is a positioned table with fixed column widths in inches.
type Table struct {
	Frame     Rect
	ColWidths []float64
	Rows      []TableRow
}

func (Table) element() {}

// Slide is a compiled slide: primitives in paint order plus speaker notes.
type Slide struct {
	Number   int
	Elements []Element
	Notes    string
}
