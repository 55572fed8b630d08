package pptx

import (
	"archive/zip"
	"fmt"
	"strings"

	"github.com/slideforge/slideforge/deck"
)

// defaultTableRowHeight is used when the compiled table has no explicit
// height.
const defaultTableRowHeight = 0.45

func (pw *partWriter) writeSlides(zw *zip.Writer) error {
	for i, s := range pw.doc.Slides {
		if err := pw.writeSlideXML(zw, s, i); err != nil {
			return err
		}
		if err := pw.writeSlideRels(zw, s, i); err != nil {
			return err
		}
	}
	return nil
}

func (pw *partWriter) writeSlideXML(zw *zip.Writer, s deck.Slide, slideIdx int) error {
	var shapes strings.Builder
	shapeID := 2 // 1 is the group shape
	picRel := 2  // rId1 is the slide layout

	for _, e := range s.Elements {
		switch el := e.(type) {
		case deck.Box:
			shapes.WriteString(boxXML(el, &shapeID))
		case deck.Text:
			shapes.WriteString(textXML(el, &shapeID))
		case deck.Picture:
			shapes.WriteString(pictureXML(el, &shapeID, picRel))
			picRel++
		case deck.Table:
			shapes.WriteString(tableXML(el, &shapeID))
		}
	}

	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
%s    </p:spTree>
  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sld>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, shapes.String())

	return writeRawXML(zw, fmt.Sprintf("ppt/slides/slide%d.xml", slideIdx+1), content)
}

func (pw *partWriter) writeSlideRels(zw *zip.Writer, s deck.Slide, slideIdx int) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="%s">
  <Relationship Id="rId1" Type="%s" Target="../slideLayouts/slideLayout1.xml"/>`,
		nsRelationships, relTypeSlideLayout)

	relIdx := 2
	imgIdx := pw.imageIndexBase(slideIdx)
	for _, pic := range pictures(s) {
		fmt.Fprintf(&sb, `
  <Relationship Id="rId%d" Type="%s" Target="../media/image%d.%s"/>`,
			relIdx, relTypeImage, imgIdx, imageExt(pic))
		relIdx++
		imgIdx++
	}

	if s.Notes != "" {
		fmt.Fprintf(&sb, `
  <Relationship Id="rId%d" Type="%s" Target="../notesSlides/notesSlide%d.xml"/>`,
			relIdx, relTypeNotesSlide, slideIdx+1)
	}

	sb.WriteString("\n</Relationships>")
	return writeRawXML(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideIdx+1), sb.String())
}

func (pw *partWriter) writeNotesSlides(zw *zip.Writer) error {
	for i, s := range pw.doc.Slides {
		if s.Notes == "" {
			continue
		}
		content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="2" name="Notes Placeholder"/>
          <p:cNvSpPr>
            <a:spLocks noGrp="1"/>
          </p:cNvSpPr>
          <p:nvPr>
            <p:ph type="body" idx="1"/>
          </p:nvPr>
        </p:nvSpPr>
        <p:spPr/>
        <p:txBody>
          <a:bodyPr/>
          <a:lstStyle/>
          <a:p>
            <a:r>
              <a:rPr lang="en-US" dirty="0"/>
              <a:t>%s</a:t>
            </a:r>
          </a:p>
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:notes>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, xmlEscape(s.Notes))

		if err := writeRawXML(zw, fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", i+1), content); err != nil {
			return err
		}

		rels := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="%s">
  <Relationship Id="rId1" Type="%s" Target="../slides/slide%d.xml"/>
</Relationships>`, nsRelationships, relTypeSlide, i+1)
		if err := writeRawXML(zw, fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", i+1), rels); err != nil {
			return err
		}
	}
	return nil
}

// --- element serializers ---

func xfrmXML(frame deck.Rect) string {
	return fmt.Sprintf(`<a:xfrm>
            <a:off x="%d" y="%d"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>`, emu(frame.X), emu(frame.Y), emu(frame.W), emu(frame.H))
}

func boxXML(b deck.Box, shapeID *int) string {
	id := *shapeID
	*shapeID++

	fill := ""
	if b.Fill != "" {
		fill = fmt.Sprintf(`
          <a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, b.Fill)
	}
	line := `
          <a:ln><a:noFill/></a:ln>`
	if b.LineWidthPt > 0 {
		line = fmt.Sprintf(`
          <a:ln w="%d"><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:ln>`,
			int64(b.LineWidthPt*12700), b.LineColor)
	}

	return fmt.Sprintf(`      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="%d" name="Shape %d"/>
          <p:cNvSpPr/>
          <p:nvPr/>
        </p:nvSpPr>
        <p:spPr>
          %s
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>%s%s
        </p:spPr>
      </p:sp>
`, id, id, xfrmXML(b.Frame), fill, line)
}

func textXML(t deck.Text, shapeID *int) string {
	id := *shapeID
	*shapeID++

	anchor := ""
	if t.Anchor != "" && t.Anchor != deck.AnchorTop {
		anchor = fmt.Sprintf(` anchor="%s"`, t.Anchor)
	}

	var paras strings.Builder
	for _, p := range t.Paragraphs {
		paras.WriteString(paragraphXML(p))
	}

	return fmt.Sprintf(`      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="%d" name="TextBox %d"/>
          <p:cNvSpPr txBox="1"/>
          <p:nvPr/>
        </p:nvSpPr>
        <p:spPr>
          %s
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
          <a:noFill/>
        </p:spPr>
        <p:txBody>
          <a:bodyPr wrap="square"%s/>
          <a:lstStyle/>
%s        </p:txBody>
      </p:sp>
`, id, id, xfrmXML(t.Frame), anchor, paras.String())
}

func paragraphXML(p deck.Paragraph) string {
	attrs := ""
	if p.Align != "" && p.Align != deck.AlignLeft {
		attrs += fmt.Sprintf(` algn="%s"`, p.Align)
	}
	if p.IndentLevel > 0 {
		attrs += fmt.Sprintf(` lvl="%d"`, p.IndentLevel)
	}

	var props strings.Builder
	if p.SpaceBeforePt > 0 {
		fmt.Fprintf(&props, `
            <a:spcBef><a:spcPts val="%d"/></a:spcBef>`, p.SpaceBeforePt*100)
	}
	if p.SpaceAfterPt > 0 {
		fmt.Fprintf(&props, `
            <a:spcAft><a:spcPts val="%d"/></a:spcAft>`, p.SpaceAfterPt*100)
	}
	if p.Bullet != nil {
		fmt.Fprintf(&props, `
            <a:buClr><a:srgbClr val="%s"/></a:buClr>
            <a:buChar char="%s"/>`, p.Bullet.Color, xmlEscape(string(p.Bullet.Glyph)))
	} else {
		props.WriteString(`
            <a:buNone/>`)
	}

	var runs strings.Builder
	for _, r := range p.Runs {
		runs.WriteString(runXML(r))
	}

	return fmt.Sprintf(`          <a:p>
            <a:pPr%s>%s
            </a:pPr>
%s          </a:p>
`, attrs, props.String(), runs.String())
}

func runXML(r deck.Run) string {
	attrs := fmt.Sprintf(` lang="ja-JP" altLang="en-US" sz="%d" dirty="0"`, r.SizePt*100)
	if r.Bold {
		attrs += ` b="1"`
	}

	fonts := ""
	if r.FontFace != "" {
		// Set both latin and east-asian typefaces so Japanese text renders
		// with the profile font.
		fonts = fmt.Sprintf(`
              <a:latin typeface="%s"/>
              <a:ea typeface="%s"/>`, xmlEscape(r.FontFace), xmlEscape(r.FontFace))
	}

	return fmt.Sprintf(`            <a:r>
              <a:rPr%s>
              <a:solidFill><a:srgbClr val="%s"/></a:solidFill>%s
              </a:rPr>
              <a:t>%s</a:t>
            </a:r>
`, attrs, r.Color, fonts, xmlEscape(r.Text))
}

func pictureXML(p deck.Picture, shapeID *int, relIdx int) string {
	id := *shapeID
	*shapeID++

	return fmt.Sprintf(`      <p:pic>
        <p:nvPicPr>
          <p:cNvPr id="%d" name="Picture %d"/>
          <p:cNvPicPr>
            <a:picLocks noChangeAspect="1"/>
          </p:cNvPicPr>
          <p:nvPr/>
        </p:nvPicPr>
        <p:blipFill>
          <a:blip r:embed="rId%d"/>
          <a:stretch>
            <a:fillRect/>
          </a:stretch>
        </p:blipFill>
        <p:spPr>
          %s
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
        </p:spPr>
      </p:pic>
`, id, id, relIdx, xfrmXML(p.Frame))
}

func tableXML(t deck.Table, shapeID *int) string {
	id := *shapeID
	*shapeID++

	height := t.Frame.H
	if height == 0 {
		height = defaultTableRowHeight * float64(len(t.Rows))
	}
	rowHeight := emu(height) / int64(max(len(t.Rows), 1))

	var grid strings.Builder
	for _, w := range t.ColWidths {
		fmt.Fprintf(&grid, `            <a:gridCol w="%d"/>
`, emu(w))
	}

	var rows strings.Builder
	for _, row := range t.Rows {
		fmt.Fprintf(&rows, `            <a:tr h="%d">
`, rowHeight)
		for _, cell := range row.Cells {
			rows.WriteString(tableCellXML(cell))
		}
		rows.WriteString("            </a:tr>\n")
	}

	return fmt.Sprintf(`      <p:graphicFrame>
        <p:nvGraphicFramePr>
          <p:cNvPr id="%d" name="Table %d"/>
          <p:cNvGraphicFramePr>
            <a:graphicFrameLocks noGrp="1"/>
          </p:cNvGraphicFramePr>
          <p:nvPr/>
        </p:nvGraphicFramePr>
        <p:xfrm>
          <a:off x="%d" y="%d"/>
          <a:ext cx="%d" cy="%d"/>
        </p:xfrm>
        <a:graphic>
          <a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table">
            <a:tbl>
              <a:tblPr firstRow="1" bandRow="1"/>
              <a:tblGrid>
%s              </a:tblGrid>
%s            </a:tbl>
          </a:graphicData>
        </a:graphic>
      </p:graphicFrame>
`, id, id,
		emu(t.Frame.X), emu(t.Frame.Y), emu(t.Frame.W), emu(height),
		grid.String(), rows.String())
}

func tableCellXML(cell deck.TableCell) string {
	bold := ""
	if cell.Bold {
		bold = ` b="1"`
	}

	fonts := ""
	if cell.FontFace != "" {
		fonts = fmt.Sprintf(`
                      <a:latin typeface="%s"/>
                      <a:ea typeface="%s"/>`, xmlEscape(cell.FontFace), xmlEscape(cell.FontFace))
	}

	borders := ""
	if cell.BorderColor != "" {
		for _, side := range []string{"lnL", "lnR", "lnT", "lnB"} {
			borders += fmt.Sprintf(`
                  <a:%s w="6350"><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:%s>`,
				side, cell.BorderColor, side)
		}
	}

	fill := ""
	if cell.Fill != "" {
		fill = fmt.Sprintf(`
                  <a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, cell.Fill)
	}

	return fmt.Sprintf(`              <a:tc>
                <a:txBody>
                  <a:bodyPr/>
                  <a:lstStyle/>
                  <a:p>
                    <a:r>
                      <a:rPr lang="ja-JP" altLang="en-US" sz="%d" dirty="0"%s>
                      <a:solidFill><a:srgbClr val="%s"/></a:solidFill>%s
                      </a:rPr>
                      <a:t>%s</a:t>
                    </a:r>
                  </a:p>
                </a:txBody>
                <a:tcPr anchor="ctr">%s%s
                </a:tcPr>
              </a:tc>
`, cell.SizePt*100, bold, cell.Color, fonts, xmlEscape(cell.Text), borders, fill)
}
