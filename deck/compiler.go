package deck

import (
	"fmt"

	"github.com/slideforge/slideforge/schema"
)

// Assets carries the raster images available to a compilation pass:
// generated or extracted slide images and pre-rendered diagram PNGs, both
// keyed by slide number. Missing entries degrade gracefully (placeholder
// box, fallback text).
type Assets struct {
	SlideImages   map[int][]byte
	DiagramImages map[int][]byte
}

// Compiler lays out plan slides using a lecturer profile. The design is
// white-based throughout: the primary color appears only in text and
// accent elements, never as a slide background.
type Compiler struct {
	profile *schema.LecturerProfile
}

// NewCompiler creates a compiler for a profile.
func NewCompiler(profile *schema.LecturerProfile) *Compiler {
	return &Compiler{profile: profile}
}

// BulletSize returns the font size for a bullet at the given indent
// level: two points smaller per level, never below 12.
func (c *Compiler) BulletSize(level int) int {
	size := c.profile.Fonts.BodySizePt - level*2
	if size < 12 {
		return 12
	}
	return size
}

// Compile lays out every slide of the plan.
func (c *Compiler) Compile(p *schema.PresentationPlan, assets Assets) []Slide {
	slides := make([]Slide, 0, len(p.Slides))
	for i := range p.Slides {
		slides = append(slides, c.CompileSlide(&p.Slides[i], p.TotalSlides, assets))
	}
	return slides
}

// CompileSlide lays out one slide. Unknown layouts use the content
// layout.
func (c *Compiler) CompileSlide(sc *schema.SlideContent, totalSlides int, assets Assets) Slide {
	s := Slide{Number: sc.SlideNumber, Notes: sc.Notes}

	switch sc.LayoutType {
	case schema.LayoutTitle:
		c.titleSlide(&s, sc)
	case schema.LayoutSectionHeader:
		c.sectionHeader(&s, sc, totalSlides)
	case schema.LayoutContentWithImage:
		c.contentImageSlide(&s, sc, totalSlides, assets)
	case schema.LayoutTwoColumn:
		c.twoColumnSlide(&s, sc, totalSlides)
	case schema.LayoutTable:
		c.tableSlide(&s, sc, totalSlides)
	case schema.LayoutDiagram:
		c.diagramSlide(&s, sc, totalSlides, assets)
	case schema.LayoutKeyTakeaway:
		c.takeawaySlide(&s, sc, totalSlides)
	default:
		c.contentSlide(&s, sc, totalSlides)
	}
	return s
}

// colors and fonts shorthands

func (c *Compiler) colors() schema.ColorScheme { return c.profile.Colors }
func (c *Compiler) fonts() schema.FontConfig   { return c.profile.Fonts }

// shared pieces

func (c *Compiler) addSlideNumber(s *Slide, slideNumber, totalSlides int) {
	s.Elements = append(s.Elements, Text{
		Frame:  Rect{X: SlideNumLeft, Y: SlideNumTop, W: SlideNumWidth, H: SlideNumHeight},
		Anchor: AnchorTop,
		Paragraphs: []Paragraph{{
			Align: AlignRight,
			Runs: []Run{{
				Text:     fmt.Sprintf("%d / %d", slideNumber, totalSlides),
				FontFace: c.fonts().Latin,
				SizePt:   10,
				Color:    PlainHex(c.colors().TextLight),
			}},
		}},
	})
}

func (c *Compiler) addTitleBar(s *Slide, title string) {
	// Accent bar, title text, then the separator line under both.
	s.Elements = append(s.Elements,
		Box{
			Frame: Rect{X: AccentBarLeft, Y: AccentBarTop, W: AccentBarWidth, H: AccentBarHeight},
			Fill:  PlainHex(c.colors().Primary),
		},
		Text{
			Frame:  Rect{X: TitleTextLeft, Y: TitleTop, W: TitleTextWidth, H: TitleHeight},
			Anchor: AnchorMiddle,
			Paragraphs: []Paragraph{{
				Runs: []Run{{
					Text:     title,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().TitleSizePt,
					Color:    PlainHex(c.colors().Primary),
					Bold:     true,
				}},
			}},
		},
		Box{
			Frame: Rect{X: MarginLeft, Y: TitleSeparatorY, W: ContentWidth, H: 0.02},
			Fill:  "CCCCCC",
		},
	)
}

func (c *Compiler) bulletParagraphs(bullets []schema.BulletPoint) []Paragraph {
	paras := make([]Paragraph, 0, len(bullets))
	for _, b := range bullets {
		glyph := GlyphFilledBullet
		glyphColor := PlainHex(c.colors().Accent)
		if b.Level > 0 {
			glyph = GlyphOpenCircle
			glyphColor = PlainHex(c.colors().TextLight)
		}
		paras = append(paras, Paragraph{
			Bullet:        &Bullet{Glyph: glyph, Color: glyphColor},
			IndentLevel:   b.Level,
			SpaceBeforePt: 6,
			SpaceAfterPt:  4,
			Runs: []Run{{
				Text:     b.Text,
				FontFace: c.fonts().Japanese,
				SizePt:   c.BulletSize(b.Level),
				Color:    PlainHex(c.colors().TextDark),
				Bold:     b.Bold,
			}},
		})
	}
	return paras
}

// layouts

func (c *Compiler) titleSlide(s *Slide, sc *schema.SlideContent) {
	s.Elements = append(s.Elements,
		// Top accent line and bottom bar frame the page.
		Box{Frame: Rect{X: 0, Y: 0, W: SlideWidth, H: 0.06}, Fill: PlainHex(c.colors().Primary)},
		Box{Frame: Rect{X: 0, Y: 7.0, W: SlideWidth, H: 0.5}, Fill: PlainHex(c.colors().Primary)},
		Text{
			Frame:  Rect{X: 2.0, Y: 2.0, W: 9.333, H: 2.0},
			Anchor: AnchorMiddle,
			Paragraphs: []Paragraph{{
				Align: AlignCenter,
				Runs: []Run{{
					Text:     sc.Title,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().TitleSizePt + 4,
					Color:    PlainHex(c.colors().Primary),
					Bold:     true,
				}},
			}},
		},
	)

	if sc.Subtitle != "" {
		s.Elements = append(s.Elements, Text{
			Frame:  Rect{X: 2.0, Y: 4.2, W: 9.333, H: 1.0},
			Anchor: AnchorTop,
			Paragraphs: []Paragraph{{
				Align: AlignCenter,
				Runs: []Run{{
					Text:     sc.Subtitle,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().SubtitleSizePt,
					Color:    PlainHex(c.colors().TextLight),
				}},
			}},
		})
	}

	s.Elements = append(s.Elements,
		Box{Frame: Rect{X: 4.0, Y: 5.5, W: 5.333, H: 0.04}, Fill: PlainHex(c.colors().Accent)},
	)
}

func (c *Compiler) sectionHeader(s *Slide, sc *schema.SlideContent, totalSlides int) {
	s.Elements = append(s.Elements,
		// Full-height accent bar on the left edge.
		Box{Frame: Rect{X: 0, Y: 0, W: 0.08, H: SlideHeight}, Fill: PlainHex(c.colors().Primary)},
		Text{
			Frame:  Rect{X: 1.5, Y: 2.0, W: 10.0, H: 2.0},
			Anchor: AnchorMiddle,
			Paragraphs: []Paragraph{{
				Runs: []Run{{
					Text:     sc.Title,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().TitleSizePt + 8,
					Color:    PlainHex(c.colors().Primary),
					Bold:     true,
				}},
			}},
		},
	)

	if sc.Subtitle != "" {
		s.Elements = append(s.Elements, Text{
			Frame:  Rect{X: 1.5, Y: 4.2, W: 10.0, H: 1.0},
			Anchor: AnchorTop,
			Paragraphs: []Paragraph{{
				Runs: []Run{{
					Text:     sc.Subtitle,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().SubtitleSizePt,
					Color:    PlainHex(c.colors().TextLight),
				}},
			}},
		})
	}

	c.addSlideNumber(s, sc.SlideNumber, totalSlides)
}

func (c *Compiler) contentSlide(s *Slide, sc *schema.SlideContent, totalSlides int) {
	c.addTitleBar(s, sc.Title)

	if len(sc.Bullets) > 0 {
		s.Elements = append(s.Elements, Text{
			Frame:      Rect{X: MarginLeft, Y: ContentTop, W: ContentWidth, H: ContentHeight},
			Anchor:     AnchorMiddle,
			Paragraphs: c.bulletParagraphs(sc.Bullets),
		})
	}

	c.addSlideNumber(s, sc.SlideNumber, totalSlides)
}

func (c *Compiler) contentImageSlide(s *Slide, sc *schema.SlideContent, totalSlides int, assets Assets) {
	c.addTitleBar(s, sc.Title)

	if len(sc.Bullets) > 0 {
		s.Elements = append(s.Elements, Text{
			Frame:      Rect{X: MarginLeft, Y: ContentTop, W: TextWithImageWidth, H: ContentHeight},
			Anchor:     AnchorMiddle,
			Paragraphs: c.bulletParagraphs(sc.Bullets),
		})
	}

	imageFrame := Rect{X: ImageLeft, Y: ContentTop, W: ImageWidth, H: ImageHeight}
	if data, ok := assets.SlideImages[sc.SlideNumber]; ok {
		s.Elements = append(s.Elements, Picture{Frame: imageFrame, Data: data, Format: "png"})
	} else {
		// Placeholder keeps the layout readable when the image is absent.
		label := sc.ImageRef
		if label == "" {
			label = "image"
		}
		s.Elements = append(s.Elements,
			Box{Frame: imageFrame, Fill: "F5F5F5", LineColor: "CCCCCC", LineWidthPt: 1},
			Text{
				Frame:  Rect{X: ImageLeft, Y: 3.5, W: ImageWidth, H: 1.0},
				Anchor: AnchorTop,
				Paragraphs: []Paragraph{{
					Align: AlignCenter,
					Runs: []Run{{
						Text:     label,
						FontFace: c.fonts().Latin,
						SizePt:   12,
						Color:    "999999",
					}},
				}},
			},
		)
	}

	c.addSlideNumber(s, sc.SlideNumber, totalSlides)
}

func (c *Compiler) twoColumnSlide(s *Slide, sc *schema.SlideContent, totalSlides int) {
	c.addTitleBar(s, sc.Title)

	mid := (len(sc.Bullets) + 1) / 2
	left := sc.Bullets[:mid]
	right := sc.Bullets[mid:]

	if len(left) > 0 {
		s.Elements = append(s.Elements, Text{
			Frame:      Rect{X: MarginLeft, Y: ContentTop, W: TwoColLeftWidth, H: ContentHeight},
			Anchor:     AnchorTop,
			Paragraphs: c.bulletParagraphs(left),
		})
	}

	s.Elements = append(s.Elements, Box{
		Frame: Rect{X: 6.667, Y: ContentTop, W: 0.02, H: 5.0},
		Fill:  "DDDDDD",
	})

	if len(right) > 0 {
		s.Elements = append(s.Elements, Text{
			Frame:      Rect{X: TwoColRightLeft, Y: ContentTop, W: TwoColRightWide, H: ContentHeight},
			Anchor:     AnchorTop,
			Paragraphs: c.bulletParagraphs(right),
		})
	}

	c.addSlideNumber(s, sc.SlideNumber, totalSlides)
}

func (c *Compiler) tableSlide(s *Slide, sc *schema.SlideContent, totalSlides int) {
	c.addTitleBar(s, sc.Title)

	if sc.Table != nil && len(sc.Table.Headers) > 0 {
		t := sc.Table
		cellSize := c.fonts().BodySizePt - 2

		colW := make([]float64, len(t.Headers))
		for i := range colW {
			colW[i] = ContentWidth / float64(len(t.Headers))
		}

		header := TableRow{}
		for _, h := range t.Headers {
			header.Cells = append(header.Cells, TableCell{
				Text:        h,
				FontFace:    c.fonts().Japanese,
				SizePt:      cellSize,
				Color:       "FFFFFF",
				Fill:        PlainHex(c.colors().Primary),
				Bold:        true,
				BorderColor: "CCCCCC",
			})
		}

		rows := []TableRow{header}
		for ri, row := range t.Rows {
			fill := "FFFFFF"
			if ri%2 == 1 {
				fill = "F8F8F8"
			}
			tr := TableRow{}
			for _, cell := range row {
				tr.Cells = append(tr.Cells, TableCell{
					Text:        cell,
					FontFace:    c.fonts().Japanese,
					SizePt:      cellSize,
					Color:       PlainHex(c.colors().TextDark),
					Fill:        fill,
					BorderColor: "DDDDDD",
				})
			}
			rows = append(rows, tr)
		}

		s.Elements = append(s.Elements, Table{
			Frame:     Rect{X: MarginLeft, Y: ContentTop, W: ContentWidth},
			ColWidths: colW,
			Rows:      rows,
		})
	}

	c.addSlideNumber(s, sc.SlideNumber, totalSlides)
}

func (c *Compiler) diagramSlide(s *Slide, sc *schema.SlideContent, totalSlides int, assets Assets) {
	c.addTitleBar(s, sc.Title)

	area := Rect{X: DiagramAreaLeft, Y: DiagramAreaTop, W: DiagramAreaWidth, H: DiagramAreaHeight}
	if data, ok := assets.DiagramImages[sc.SlideNumber]; ok {
		s.Elements = append(s.Elements, Picture{Frame: area, Data: data, Format: "png"})
	} else if sc.Diagram != nil {
		description := sc.Diagram.FallbackDescription
		if description == "" {
			description = sc.Diagram.MermaidCode
		}
		s.Elements = append(s.Elements, Text{
			Frame:  area,
			Anchor: AnchorMiddle,
			Paragraphs: []Paragraph{{
				Align: AlignCenter,
				Runs: []Run{{
					Text:     description,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().BodySizePt - 2,
					Color:    PlainHex(c.colors().TextDark),
				}},
			}},
		})
	}

	if sc.Diagram != nil && sc.Diagram.Caption != "" {
		s.Elements = append(s.Elements, Text{
			Frame:  Rect{X: MarginLeft, Y: 6.6, W: ContentWidth, H: 0.4},
			Anchor: AnchorTop,
			Paragraphs: []Paragraph{{
				Align: AlignCenter,
				Runs: []Run{{
					Text:     sc.Diagram.Caption,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().CaptionSizePt,
					Color:    PlainHex(c.colors().TextLight),
				}},
			}},
		})
	}

	c.addSlideNumber(s, sc.SlideNumber, totalSlides)
}

func (c *Compiler) takeawaySlide(s *Slide, sc *schema.SlideContent, totalSlides int) {
	message := sc.KeyMessage
	if message == "" {
		message = sc.Title
	}

	s.Elements = append(s.Elements,
		// Double-width accent bar marks the takeaway.
		Box{Frame: Rect{X: 0, Y: 0, W: 0.16, H: SlideHeight}, Fill: PlainHex(c.colors().Accent)},
		Text{
			Frame:  Rect{X: 1.3, Y: 0.8, W: 10.7, H: 2.5},
			Anchor: AnchorMiddle,
			Paragraphs: []Paragraph{{
				Runs: []Run{{
					Text:     message,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().TitleSizePt,
					Color:    PlainHex(c.colors().Primary),
					Bold:     true,
				}},
			}},
		},
		Box{Frame: Rect{X: 1.3, Y: 3.5, W: 10.7, H: 0.04}, Fill: PlainHex(c.colors().Accent)},
	)

	if len(sc.Bullets) > 0 {
		paras := make([]Paragraph, 0, len(sc.Bullets))
		for _, b := range sc.Bullets {
			paras = append(paras, Paragraph{
				Bullet:        &Bullet{Glyph: GlyphStar, Color: PlainHex(c.colors().Accent)},
				SpaceBeforePt: 8,
				SpaceAfterPt:  4,
				Runs: []Run{{
					Text:     b.Text,
					FontFace: c.fonts().Japanese,
					SizePt:   c.fonts().BodySizePt,
					Color:    PlainHex(c.colors().TextDark),
					Bold:     b.Bold,
				}},
			})
		}
		s.Elements = append(s.Elements, Text{
			Frame:      Rect{X: 1.3, Y: 3.8, W: 10.7, H: 3.2},
			Anchor:     AnchorTop,
			Paragraphs: paras,
		})
	}

	c.addSlideNumber(s, sc.SlideNumber, totalSlides)
}
