package plan

import (
	"fmt"

	"github.com/slideforge/slideforge/schema"
)

// Coerce rebuilds a PresentationPlan from an untyped model response that
// failed strict decoding. It never fails and never discards the whole
// response: every missing or malformed field is replaced with a safe
// default, field by field, keyed off the same JSON names as the strict
// schema. The result still needs ValidateAndFix before use.
//
// The model occasionally returns structurally-close-but-invalid output
// (wrong enum casing, a stringified bullet, a missing optional field);
// rejecting such a response would waste an expensive generation call.
func Coerce(raw map[string]any) *schema.PresentationPlan {
	slides := coerceSlides(raw["slides"])

	p := &schema.PresentationPlan{
		PaperTitle:      asString(raw["paper_title"]),
		LectureTitle:    asString(raw["lecture_title"]),
		TotalSlides:     len(slides),
		AudienceLevel:   schema.ParseAudienceLevel(asString(raw["audience_level"])),
		Slides:          slides,
		GenerationNotes: asString(raw["generation_notes"]),
	}
	return p
}

func coerceSlides(v any) []schema.SlideContent {
	rawSlides, ok := v.([]any)
	if !ok {
		return []schema.SlideContent{}
	}

	slides := make([]schema.SlideContent, 0, len(rawSlides))
	for i, rs := range rawSlides {
		m, ok := rs.(map[string]any)
		if !ok {
			// Non-object entries become empty content slides so positions
			// of the surviving slides are preserved.
			slides = append(slides, schema.SlideContent{
				SlideNumber: i + 1,
				LayoutType:  schema.LayoutContent,
				Title:       asString(rs),
			})
			continue
		}
		slides = append(slides, coerceSlide(m, i))
	}
	return slides
}

func coerceSlide(m map[string]any, index int) schema.SlideContent {
	s := schema.SlideContent{
		SlideNumber: asIntDefault(m["slide_number"], index+1),
		LayoutType:  schema.ParseSlideLayout(asString(m["layout_type"])),
		Title:       asString(m["title"]),
		Subtitle:    asString(m["subtitle"]),
		Bullets:     coerceBullets(m["bullets"]),
		Notes:       asString(m["notes"]),
		Table:       coerceTable(m["table"]),
		Diagram:     coerceDiagram(m["diagram"]),
		ImageRef:    asString(m["image_ref"]),
		ImagePrompt: asString(m["image_prompt"]),
		KeyMessage:  asString(m["key_message"]),
	}
	return s
}

func coerceBullets(v any) []schema.BulletPoint {
	raw, ok := v.([]any)
	if !ok {
		return []schema.BulletPoint{}
	}
	bullets := make([]schema.BulletPoint, 0, len(raw))
	for _, rb := range raw {
		if m, ok := rb.(map[string]any); ok {
			bullets = append(bullets, schema.BulletPoint{
				Text:  asString(m["text"]),
				Level: clampLevel(asIntDefault(m["level"], 0)),
				Bold:  asBool(m["bold"]),
			})
			continue
		}
		// A bare string (or anything else) is treated as level-0 text.
		bullets = append(bullets, schema.BulletPoint{Text: asString(rb)})
	}
	return bullets
}

func coerceTable(v any) *schema.TableData {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	t := &schema.TableData{
		Headers: asStringSlice(m["headers"]),
		Caption: asString(m["caption"]),
	}
	if rows, ok := m["rows"].([]any); ok {
		t.Rows = make([][]string, 0, len(rows))
		for _, r := range rows {
			t.Rows = append(t.Rows, asStringSlice(r))
		}
	} else {
		t.Rows = [][]string{}
	}
	return t
}

func coerceDiagram(v any) *schema.DiagramSpec {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &schema.DiagramSpec{
		DiagramType:         schema.ParseDiagramType(asString(m["diagram_type"])),
		MermaidCode:         asString(m["mermaid_code"]),
		Caption:             asString(m["caption"]),
		FallbackDescription: asString(m["fallback_description"]),
	}
}

// asString stringifies any scalar; nil becomes "".
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integers without a dot.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, len(raw))
	for i, e := range raw {
		out[i] = asString(e)
	}
	return out
}

func asIntDefault(v any, def int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return def
	}
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 3 {
		return 3
	}
	return level
}
