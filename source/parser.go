// Package source turns raw input (markdown, plain text, web pages) into
// the normalized ParsedDocument the structurer consumes.
package source

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/slideforge/slideforge/schema"
)

var (
	headingRe     = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	imageRe       = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	authorLineRe  = regexp.MustCompile(`^(?i)(?:authors?|著者)\s*[:：]\s*(.+)$`)
	abstractRe    = regexp.MustCompile(`(?i)^(abstract|summary|要旨|概要|抄録)$`)
	excessLinesRe = regexp.MustCompile(`\n{4,}`)
)

// ParseMarkdown builds a document from markdown content. The title comes
// from the first H1 (or the first non-empty line), the abstract from a
// section whose heading names one, figures from image references.
func ParseMarkdown(content string) (*schema.ParsedDocument, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("document is empty")
	}

	doc := &schema.ParsedDocument{
		FullMarkdown: cleanMarkdown(content),
		SourceType:   schema.SourceText,
	}

	lines := strings.Split(content, "\n")
	var (
		current    *schema.PaperSection
		bodyBuf    strings.Builder
		sawHeading bool
	)
	flush := func() {
		if current != nil {
			current.Content = strings.TrimSpace(bodyBuf.String())
			doc.Sections = append(doc.Sections, *current)
		}
		bodyBuf.Reset()
	}

	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			sawHeading = true
			current = &schema.PaperSection{
				Heading: strings.TrimSpace(m[2]),
				Level:   len(m[1]),
			}
			if doc.Title == "" && len(m[1]) == 1 {
				doc.Title = current.Heading
			}
			continue
		}
		trimmed := strings.TrimSpace(line)
		if m := authorLineRe.FindStringSubmatch(trimmed); m != nil && len(doc.Authors) == 0 {
			doc.Authors = splitAuthors(m[1])
			continue
		}
		if current != nil {
			bodyBuf.WriteString(line)
			bodyBuf.WriteString("\n")
		} else if doc.Title == "" && trimmed != "" && !sawHeading {
			doc.Title = trimmed
		}
	}
	flush()

	for _, sec := range doc.Sections {
		if abstractRe.MatchString(sec.Heading) {
			doc.Abstract = sec.Content
			break
		}
	}

	for i, m := range imageRe.FindAllStringSubmatch(content, -1) {
		doc.Figures = append(doc.Figures, schema.ExtractedFigure{
			FigureID: figureID(m[2], i),
			Caption:  strings.TrimSpace(m[1]),
		})
	}

	return doc, nil
}

// ParseText builds a document from plain text without markdown structure.
// Paragraphs become a single untitled section.
func ParseText(content string) (*schema.ParsedDocument, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("document is empty")
	}

	title := ""
	if idx := strings.IndexByte(content, '\n'); idx > 0 {
		title = strings.TrimSpace(content[:idx])
	} else {
		title = content
	}
	if len([]rune(title)) > 120 {
		title = string([]rune(title)[:120])
	}

	return &schema.ParsedDocument{
		Title:        title,
		Sections:     []schema.PaperSection{{Heading: "", Level: 1, Content: content}},
		FullMarkdown: content,
		SourceType:   schema.SourceText,
	}, nil
}

// splitAuthors separates an author line on common delimiters.
func splitAuthors(s string) []string {
	s = strings.NewReplacer("、", ",", ";", ",", " and ", ",").Replace(s)
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// figureID derives a stable ID from the image reference, falling back to
// positional naming for unusable refs.
func figureID(ref string, idx int) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return fmt.Sprintf("figure_%d", idx+1)
	}
	if q := strings.IndexAny(ref, "?#"); q >= 0 {
		ref = ref[:q]
	}
	if slash := strings.LastIndexByte(ref, '/'); slash >= 0 {
		ref = ref[slash+1:]
	}
	if ref == "" {
		return fmt.Sprintf("figure_%d", idx+1)
	}
	return ref
}

// cleanMarkdown collapses excessive blank lines and trims trailing
// whitespace per line.
func cleanMarkdown(content string) string {
	content = excessLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
