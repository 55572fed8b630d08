package schema

// PlanJSONSchema returns the JSON Schema sent as the tool input_schema on
// structured-generation calls. It mirrors the PresentationPlan types above;
// keep the two in sync when fields change.
//
// The schema deliberately omits "default" annotations and
// "additionalProperties": the upstream tool-use implementation tends to
// return empty objects when defaults are present.
func PlanJSONSchema() map[string]any {
	bullet := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":  map[string]any{"type": "string"},
			"level": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
			"bold":  map[string]any{"type": "boolean"},
		},
		"required": []string{"text"},
	}

	table := map[string]any{
		"type": []string{"object", "null"},
		"properties": map[string]any{
			"headers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"rows": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"caption": map[string]any{"type": "string"},
		},
		"required": []string{"headers", "rows"},
	}

	diagram := map[string]any{
		"type": []string{"object", "null"},
		"properties": map[string]any{
			"diagram_type": map[string]any{
				"type": "string",
				"enum": []string{
					string(DiagramFlowchart), string(DiagramComparisonTable),
					string(DiagramSequence), string(DiagramTimeline),
				},
			},
			"mermaid_code":         map[string]any{"type": "string"},
			"caption":              map[string]any{"type": "string"},
			"fallback_description": map[string]any{"type": "string"},
		},
		"required": []string{"diagram_type", "mermaid_code"},
	}

	slide := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"slide_number": map[string]any{"type": "integer"},
			"layout_type": map[string]any{
				"type": "string",
				"enum": []string{
					string(LayoutTitle), string(LayoutSectionHeader), string(LayoutContent),
					string(LayoutContentWithImage), string(LayoutTwoColumn), string(LayoutTable),
					string(LayoutDiagram), string(LayoutKeyTakeaway),
				},
			},
			"title":        map[string]any{"type": "string"},
			"subtitle":     map[string]any{"type": "string"},
			"bullets":      map[string]any{"type": "array", "items": bullet},
			"notes":        map[string]any{"type": "string"},
			"table":        table,
			"diagram":      diagram,
			"image_ref":    map[string]any{"type": []string{"string", "null"}},
			"image_prompt": map[string]any{"type": "string"},
			"key_message":  map[string]any{"type": "string"},
		},
		"required": []string{"slide_number", "layout_type", "title"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paper_title":   map[string]any{"type": "string"},
			"lecture_title": map[string]any{"type": "string"},
			"total_slides":  map[string]any{"type": "integer"},
			"audience_level": map[string]any{
				"type": "string",
				"enum": []string{
					string(AudiencePharmacyUndergrad), string(AudienceGradStudent),
					string(AudienceResearcher), string(AudienceGeneral),
				},
			},
			"slides":           map[string]any{"type": "array", "items": slide},
			"generation_notes": map[string]any{"type": "string"},
		},
		"required": []string{"lecture_title", "slides"},
	}
}
