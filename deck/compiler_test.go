package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slideforge/slideforge/schema"
)

func testCompiler() *Compiler {
	profile := schema.DefaultProfile()
	return NewCompiler(&profile)
}

// findTexts returns all Text elements of a slide in order.
func findTexts(s Slide) []Text {
	var out []Text
	for _, e := range s.Elements {
		if t, ok := e.(Text); ok {
			out = append(out, t)
		}
	}
	return out
}

func findBoxes(s Slide) []Box {
	var out []Box
	for _, e := range s.Elements {
		if b, ok := e.(Box); ok {
			out = append(out, b)
		}
	}
	return out
}

func TestBulletSize(t *testing.T) {
	c := testCompiler() // body size 18

	assert.Equal(t, 18, c.BulletSize(0))
	assert.Equal(t, 16, c.BulletSize(1))
	assert.Equal(t, 14, c.BulletSize(2))
	assert.Equal(t, 12, c.BulletSize(3))
	assert.Equal(t, 12, c.BulletSize(9), "never below 12")
}

func TestContentSlideLayout(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 3,
		LayoutType:  schema.LayoutContent,
		Title:       "Background",
		Notes:       "Speak slowly here.",
		Bullets: []schema.BulletPoint{
			{Text: "Top point", Level: 0, Bold: true},
			{Text: "Nested detail", Level: 1},
		},
	}

	s := c.CompileSlide(sc, 10, Assets{})
	assert.Equal(t, 3, s.Number)
	assert.Equal(t, "Speak slowly here.", s.Notes)

	boxes := findBoxes(s)
	require.Len(t, boxes, 2)
	// Accent bar then separator, at the canonical positions.
	assert.Equal(t, Rect{X: 1.0, Y: 0.3, W: 0.08, H: 1.0}, boxes[0].Frame)
	assert.Equal(t, "2B579A", boxes[0].Fill)
	assert.Equal(t, TitleSeparatorY, boxes[1].Frame.Y)

	texts := findTexts(s)
	require.Len(t, texts, 3) // title, bullets, slide number

	title := texts[0]
	assert.Equal(t, Rect{X: 1.3, Y: 0.3, W: 11.0, H: 1.0}, title.Frame)
	assert.Equal(t, "Background", title.Paragraphs[0].Runs[0].Text)
	assert.True(t, title.Paragraphs[0].Runs[0].Bold)

	body := texts[1]
	assert.Equal(t, Rect{X: 1.0, Y: 1.6, W: 11.333, H: 5.4}, body.Frame)
	require.Len(t, body.Paragraphs, 2)

	first := body.Paragraphs[0]
	require.NotNil(t, first.Bullet)
	assert.Equal(t, GlyphFilledBullet, first.Bullet.Glyph)
	assert.Equal(t, "B7472A", first.Bullet.Color, "level-0 bullets use the accent color")
	assert.Equal(t, 18, first.Runs[0].SizePt)
	assert.True(t, first.Runs[0].Bold)

	second := body.Paragraphs[1]
	assert.Equal(t, GlyphOpenCircle, second.Bullet.Glyph)
	assert.Equal(t, "666666", second.Bullet.Color, "nested bullets use text_light")
	assert.Equal(t, 1, second.IndentLevel)
	assert.Equal(t, 16, second.Runs[0].SizePt)

	num := texts[2]
	assert.Equal(t, Rect{X: 12.0, Y: 7.0, W: 1.0, H: 0.4}, num.Frame)
	assert.Equal(t, "3 / 10", num.Paragraphs[0].Runs[0].Text)
	assert.Equal(t, 10, num.Paragraphs[0].Runs[0].SizePt)
}

func TestTitleSlideLayout(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 1,
		LayoutType:  schema.LayoutTitle,
		Title:       "Main Title",
		Subtitle:    "Subtitle here",
	}

	s := c.CompileSlide(sc, 10, Assets{})

	boxes := findBoxes(s)
	require.Len(t, boxes, 3) // top line, bottom bar, accent line
	assert.Equal(t, Rect{X: 0, Y: 0, W: SlideWidth, H: 0.06}, boxes[0].Frame)
	assert.Equal(t, Rect{X: 0, Y: 7.0, W: SlideWidth, H: 0.5}, boxes[1].Frame)

	texts := findTexts(s)
	require.Len(t, texts, 2)
	title := texts[0].Paragraphs[0].Runs[0]
	assert.Equal(t, 36, title.SizePt, "title slide uses title size + 4")
	assert.Equal(t, AlignCenter, texts[0].Paragraphs[0].Align)

	// No slide number on the title slide.
	for _, txt := range texts {
		assert.NotEqual(t, SlideNumLeft, txt.Frame.X)
	}
}

func TestSectionHeaderUsesLargerTitle(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{SlideNumber: 4, LayoutType: schema.LayoutSectionHeader, Title: "Methods"}

	s := c.CompileSlide(sc, 10, Assets{})

	boxes := findBoxes(s)
	require.NotEmpty(t, boxes)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 0.08, H: SlideHeight}, boxes[0].Frame, "full-height accent bar")

	texts := findTexts(s)
	assert.Equal(t, 40, texts[0].Paragraphs[0].Runs[0].SizePt, "section header uses title size + 8")
}

func TestContentImageSlideWithImage(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 5,
		LayoutType:  schema.LayoutContentWithImage,
		Title:       "Results",
		Bullets:     []schema.BulletPoint{{Text: "Finding"}},
		ImageRef:    "generated_slide_5.png",
	}
	assets := Assets{SlideImages: map[int][]byte{5: []byte("png-bytes")}}

	s := c.CompileSlide(sc, 10, assets)

	var pic *Picture
	for _, e := range s.Elements {
		if p, ok := e.(Picture); ok {
			pic = &p
		}
	}
	require.NotNil(t, pic)
	assert.Equal(t, Rect{X: 7.333, Y: 1.6, W: 5.0, H: 4.5}, pic.Frame)
	assert.Equal(t, []byte("png-bytes"), pic.Data)

	// The bullet frame is the narrow variant.
	texts := findTexts(s)
	assert.Equal(t, TextWithImageWidth, texts[1].Frame.W)
}

func TestContentImageSlidePlaceholderWhenMissing(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 5,
		LayoutType:  schema.LayoutContentWithImage,
		Title:       "Results",
		ImageRef:    "fig2.png",
	}

	s := c.CompileSlide(sc, 10, Assets{})

	for _, e := range s.Elements {
		_, ok := e.(Picture)
		assert.False(t, ok, "no picture without image data")
	}

	var placeholder *Box
	for _, e := range s.Elements {
		if b, ok := e.(Box); ok && b.Fill == "F5F5F5" {
			placeholder = &b
		}
	}
	require.NotNil(t, placeholder)
	assert.Equal(t, Rect{X: 7.333, Y: 1.6, W: 5.0, H: 4.5}, placeholder.Frame)

	// The placeholder label names the missing reference.
	texts := findTexts(s)
	found := false
	for _, txt := range texts {
		for _, p := range txt.Paragraphs {
			for _, r := range p.Runs {
				if r.Text == "fig2.png" {
					found = true
				}
			}
		}
	}
	assert.True(t, found)
}

func TestTwoColumnSplitsBullets(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 6,
		LayoutType:  schema.LayoutTwoColumn,
		Title:       "Comparison",
		Bullets: []schema.BulletPoint{
			{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"},
		},
	}

	s := c.CompileSlide(sc, 10, Assets{})

	texts := findTexts(s)
	require.Len(t, texts, 4) // title, left, right, slide number

	left, right := texts[1], texts[2]
	assert.Len(t, left.Paragraphs, 3, "odd counts put the extra bullet on the left")
	assert.Len(t, right.Paragraphs, 2)
	assert.Equal(t, MarginLeft, left.Frame.X)
	assert.Equal(t, TwoColRightLeft, right.Frame.X)
	assert.Equal(t, TwoColLeftWidth, left.Frame.W)
}

func TestTableSlideHeaderAndZebra(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 7,
		LayoutType:  schema.LayoutTable,
		Title:       "Data",
		Table: &schema.TableData{
			Headers: []string{"Drug", "Dose"},
			Rows: [][]string{
				{"A", "10mg"},
				{"B", "20mg"},
				{"C", "30mg"},
			},
		},
	}

	s := c.CompileSlide(sc, 10, Assets{})

	var table *Table
	for _, e := range s.Elements {
		if tb, ok := e.(Table); ok {
			table = &tb
		}
	}
	require.NotNil(t, table)

	require.Len(t, table.ColWidths, 2)
	assert.InDelta(t, ContentWidth/2, table.ColWidths[0], 1e-9)

	require.Len(t, table.Rows, 4)
	header := table.Rows[0].Cells[0]
	assert.Equal(t, "2B579A", header.Fill)
	assert.Equal(t, "FFFFFF", header.Color)
	assert.True(t, header.Bold)
	assert.Equal(t, 16, header.SizePt, "cells use body size - 2")

	assert.Equal(t, "FFFFFF", table.Rows[1].Cells[0].Fill)
	assert.Equal(t, "F8F8F8", table.Rows[2].Cells[0].Fill, "zebra striping")
	assert.Equal(t, "FFFFFF", table.Rows[3].Cells[0].Fill)
}

func TestTableSlideWithoutDataHasNoTable(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{SlideNumber: 7, LayoutType: schema.LayoutTable, Title: "Data"}

	s := c.CompileSlide(sc, 10, Assets{})
	for _, e := range s.Elements {
		_, ok := e.(Table)
		assert.False(t, ok)
	}
}

func TestDiagramSlideRenderedAndFallback(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 8,
		LayoutType:  schema.LayoutDiagram,
		Title:       "Flow",
		Diagram: &schema.DiagramSpec{
			DiagramType:         schema.DiagramFlowchart,
			MermaidCode:         "flowchart TD\nA-->B",
			Caption:             "Figure: process flow",
			FallbackDescription: "A then B",
		},
	}

	// With a pre-rendered image.
	withImage := c.CompileSlide(sc, 10, Assets{DiagramImages: map[int][]byte{8: []byte("diagram-png")}})
	var pic *Picture
	for _, e := range withImage.Elements {
		if p, ok := e.(Picture); ok {
			pic = &p
		}
	}
	require.NotNil(t, pic)
	assert.Equal(t, Rect{X: 1.0, Y: 1.6, W: 11.333, H: 5.0}, pic.Frame)

	// Without one, the fallback description is shown.
	withoutImage := c.CompileSlide(sc, 10, Assets{})
	fallbackFound := false
	captionFound := false
	for _, txt := range findTexts(withoutImage) {
		for _, p := range txt.Paragraphs {
			for _, r := range p.Runs {
				if r.Text == "A then B" {
					fallbackFound = true
				}
				if r.Text == "Figure: process flow" {
					captionFound = true
					assert.Equal(t, 6.6, txt.Frame.Y, "caption sits below the diagram area")
				}
			}
		}
	}
	assert.True(t, fallbackFound)
	assert.True(t, captionFound)
}

func TestTakeawaySlideUsesStarsAndKeyMessage(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 9,
		LayoutType:  schema.LayoutKeyTakeaway,
		Title:       "Summary",
		KeyMessage:  "The drug works.",
		Bullets:     []schema.BulletPoint{{Text: "Effect size was large"}},
	}

	s := c.CompileSlide(sc, 10, Assets{})

	boxes := findBoxes(s)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 0.16, H: SlideHeight}, boxes[0].Frame)

	texts := findTexts(s)
	assert.Equal(t, "The drug works.", texts[0].Paragraphs[0].Runs[0].Text)

	bullets := texts[1].Paragraphs[0]
	require.NotNil(t, bullets.Bullet)
	assert.Equal(t, GlyphStar, bullets.Bullet.Glyph)
	assert.Equal(t, "B7472A", bullets.Bullet.Color)
}

func TestTakeawayFallsBackToTitle(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{SlideNumber: 9, LayoutType: schema.LayoutKeyTakeaway, Title: "Summary"}

	s := c.CompileSlide(sc, 10, Assets{})
	texts := findTexts(s)
	assert.Equal(t, "Summary", texts[0].Paragraphs[0].Runs[0].Text)
}

func TestUnknownLayoutFallsBackToContent(t *testing.T) {
	c := testCompiler()
	sc := &schema.SlideContent{
		SlideNumber: 2,
		LayoutType:  schema.SlideLayout("hero"),
		Title:       "Odd layout",
		Bullets:     []schema.BulletPoint{{Text: "still rendered"}},
	}

	s := c.CompileSlide(sc, 10, Assets{})
	texts := findTexts(s)
	require.Len(t, texts, 3)
	assert.Equal(t, ContentWidth, texts[1].Frame.W)
}

func TestCompileWholePlan(t *testing.T) {
	c := testCompiler()
	p := &schema.PresentationPlan{
		TotalSlides: 2,
		Slides: []schema.SlideContent{
			{SlideNumber: 1, LayoutType: schema.LayoutTitle, Title: "T"},
			{SlideNumber: 2, LayoutType: schema.LayoutContent, Title: "C"},
		},
	}

	slides := c.Compile(p, Assets{})
	require.Len(t, slides, 2)
	assert.Equal(t, 1, slides[0].Number)
	assert.Equal(t, 2, slides[1].Number)
}

func TestLightenDarken(t *testing.T) {
	assert.Equal(t, "#FFFFFF", Lighten("#000000", 1.0))
	assert.Equal(t, "#000000", Darken("#FFFFFF", 1.0))
	assert.Equal(t, "#7F7F7F", Lighten("#000000", 0.5))
	assert.Equal(t, "#2B579A", Lighten("#2B579A", 0))
}

func TestPercentHelpers(t *testing.T) {
	assert.InDelta(t, 50.0, XPercent(SlideWidth/2), 1e-9)
	assert.InDelta(t, 100.0, YPercent(SlideHeight), 1e-9)
}
