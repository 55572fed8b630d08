// Package pptx serializes compiled deck slides into a PowerPoint 2007
// (OOXML) file. Parts are emitted as raw XML templates into a zip archive;
// there is no intermediate DOM. The geometry arrives pre-computed from the
// deck package in inches and is converted to EMUs here.
package pptx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/slideforge/slideforge/deck"
)

// emuPerInch is the OOXML fixed-point unit (English Metric Units).
const emuPerInch = 914400

// Slide canvas in EMUs, 16:9 widescreen.
const (
	slideWidthEMU  = 12192000
	slideHeightEMU = 6858000
)

// emu converts inches to EMUs.
func emu(inches float64) int64 {
	return int64(inches*emuPerInch + 0.5)
}

// Document is a complete presentation ready to serialize.
type Document struct {
	Title   string
	Author  string
	Slides  []deck.Slide
	Created time.Time
}

// Save writes the document to a .pptx file.
func Save(path string, doc *Document) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	writeErr := Write(f, doc)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return writeErr
	}
	return closeErr
}

// Write serializes the document as a zip archive to w.
func Write(w io.Writer, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}

	zw := zip.NewWriter(w)
	pw := &partWriter{doc: doc}

	steps := []func(*zip.Writer) error{
		pw.writeContentTypes,
		pw.writeRootRels,
		pw.writeAppProperties,
		pw.writeCoreProperties,
		pw.writePresentation,
		pw.writePresentationRels,
		pw.writePresProps,
		pw.writeViewProps,
		pw.writeTableStyles,
		pw.writeSlideMaster,
		pw.writeSlideLayout,
		pw.writeTheme,
		pw.writeSlides,
		pw.writeMedia,
		pw.writeNotesSlides,
	}
	for _, step := range steps {
		if err := step(zw); err != nil {
			return err
		}
	}

	return zw.Close()
}

// partWriter carries per-write state: the image numbering must agree
// between slide rels, media parts, and content types.
type partWriter struct {
	doc *Document
}

// pictures returns every Picture of a slide in element order.
func pictures(s deck.Slide) []deck.Picture {
	var out []deck.Picture
	for _, e := range s.Elements {
		if p, ok := e.(deck.Picture); ok {
			out = append(out, p)
		}
	}
	return out
}

// imageIndexBase returns the 1-based media index of the first picture on
// slide i; pictures are numbered globally across slides.
func (pw *partWriter) imageIndexBase(slideIdx int) int {
	idx := 1
	for i := 0; i < slideIdx; i++ {
		idx += len(pictures(pw.doc.Slides[i]))
	}
	return idx
}

func writeRawXML(zw *zip.Writer, path, content string) error {
	fw, err := zw.Create(path)
	if err != nil {
		return fmt.Errorf("create %s in zip: %w", path, err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (pw *partWriter) writeMedia(zw *zip.Writer) error {
	imgIdx := 1
	for _, s := range pw.doc.Slides {
		for _, pic := range pictures(s) {
			fw, err := zw.Create(fmt.Sprintf("ppt/media/image%d.%s", imgIdx, imageExt(pic)))
			if err != nil {
				return err
			}
			if _, err := fw.Write(pic.Data); err != nil {
				return err
			}
			imgIdx++
		}
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func imageExt(p deck.Picture) string {
	if p.Format == "jpeg" || p.Format == "jpg" {
		return "jpeg"
	}
	return "png"
}
