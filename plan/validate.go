// Package plan owns the presentation plan lifecycle: structural validation
// and repair of model output, best-effort coercion of malformed responses,
// and the mutable store with bounded undo/redo history.
package plan

import (
	"fmt"

	"github.com/slideforge/slideforge/schema"
)

// maxTitleRunes is the hard ceiling on slide titles; longer titles are cut
// to maxTitleRunes-3 plus an ellipsis.
const maxTitleRunes = 80

// maxBulletsSoft is the advisory bullet ceiling; exceeding it warns but
// does not mutate the slide.
const maxBulletsSoft = 7

// Warning is a non-fatal finding attached to a validated plan.
type Warning struct {
	SlideNumber int    `json:"slide_number"`
	Message     string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("slide %d: %s", w.SlideNumber, w.Message)
}

// ValidateAndFix repairs a plan into structural validity and reports what
// it changed. It never fails: demotions and truncations are applied
// silently and surfaced only as warnings. The input is not modified.
//
// Per slide, in order: slide numbers are reassigned to their 1-based
// position, over-long titles truncated, layouts inconsistent with their
// payload (table without table data, diagram without code, image layout
// without image) demoted to content, and advisory findings (missing key
// message, too many bullets) recorded. TotalSlides is recomputed last.
func ValidateAndFix(p *schema.PresentationPlan) (*schema.PresentationPlan, []Warning) {
	fixed := p.Clone()
	var warnings []Warning
	warn := func(n int, format string, args ...any) {
		warnings = append(warnings, Warning{SlideNumber: n, Message: fmt.Sprintf(format, args...)})
	}

	for i := range fixed.Slides {
		s := &fixed.Slides[i]
		s.SlideNumber = i + 1

		if runes := []rune(s.Title); len(runes) > maxTitleRunes {
			s.Title = string(runes[:maxTitleRunes-3]) + "..."
			warn(s.SlideNumber, "title exceeded %d characters and was truncated", maxTitleRunes)
		}

		if s.LayoutType == schema.LayoutTable && s.Table == nil {
			s.LayoutType = schema.LayoutContent
			warn(s.SlideNumber, "table layout without table data, demoted to content")
		}

		if s.LayoutType == schema.LayoutDiagram && (s.Diagram == nil || s.Diagram.MermaidCode == "") {
			s.LayoutType = schema.LayoutContent
			warn(s.SlideNumber, "diagram layout without mermaid code, demoted to content")
		}

		if s.LayoutType == schema.LayoutContentWithImage && s.ImageRef == "" && s.ImagePrompt == "" {
			s.LayoutType = schema.LayoutContent
			warn(s.SlideNumber, "content_with_image layout without an image, demoted to content")
		}

		if s.KeyMessage == "" &&
			s.LayoutType != schema.LayoutTitle && s.LayoutType != schema.LayoutSectionHeader {
			warn(s.SlideNumber, "key_message is not set")
		}

		if len(s.Bullets) > maxBulletsSoft {
			warn(s.SlideNumber, "%d bullets on one slide (%d or fewer recommended)", len(s.Bullets), maxBulletsSoft)
		}
	}

	fixed.TotalSlides = len(fixed.Slides)
	return fixed, warnings
}

// DemotionCount reports how many warnings describe a layout demotion, for
// callers that opted into strict validation.
func DemotionCount(warnings []Warning) int {
	n := 0
	for _, w := range warnings {
		if containsDemotion(w.Message) {
			n++
		}
	}
	return n
}

func containsDemotion(msg string) bool {
	const marker = "demoted to content"
	return len(msg) >= len(marker) && msg[len(msg)-len(marker):] == marker
}
