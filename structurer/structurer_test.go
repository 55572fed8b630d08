package structurer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slideforge/slideforge/llm"
	"github.com/slideforge/slideforge/schema"
)

// fakeCaller returns canned tool input and records the requests it saw.
type fakeCaller struct {
	input    json.RawMessage
	err      error
	requests []llm.StructuredRequest
}

func (f *fakeCaller) CreateStructured(_ context.Context, req llm.StructuredRequest) (*llm.StructuredResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.StructuredResult{RequestID: "req-1", Input: f.input, Model: "test-model"}, nil
}

func testDoc() *schema.ParsedDocument {
	return &schema.ParsedDocument{
		Title:        "Test Paper",
		SourceType:   schema.SourcePDF,
		FullMarkdown: "# Intro\nBody.",
	}
}

func TestStructureDocumentWellFormed(t *testing.T) {
	caller := &fakeCaller{input: json.RawMessage(`{
		"paper_title": "Test Paper",
		"lecture_title": "Lecture",
		"total_slides": 99,
		"audience_level": "grad_student",
		"slides": [
			{"slide_number": 5, "layout_type": "title", "title": "Test Paper"},
			{"slide_number": 9, "layout_type": "content", "title": "Background",
			 "bullets": [{"text": "Point one", "level": 0, "bold": false}],
			 "key_message": "Why this matters"}
		],
		"generation_notes": ""
	}`)}

	profile := schema.DefaultProfile()
	s := NewStructurer(caller, &profile)
	result, err := s.StructureDocument(context.Background(), testDoc(), schema.AudienceGradStudent)
	require.NoError(t, err)

	p := result.Plan
	require.Len(t, p.Slides, 2)
	assert.Equal(t, 1, p.Slides[0].SlideNumber, "slide numbers are reassigned")
	assert.Equal(t, 2, p.Slides[1].SlideNumber)
	assert.Equal(t, 2, p.TotalSlides, "total_slides is recomputed")

	// The request carried the forced tool and the document content.
	require.Len(t, caller.requests, 1)
	req := caller.requests[0]
	assert.Equal(t, planToolName, req.ToolName)
	assert.Contains(t, req.UserContent, "Test Paper")
	assert.NotNil(t, req.ResponseSchema)
}

func TestStructureDocumentCoercesMalformedResponse(t *testing.T) {
	// Stringified bullets and an unknown layout fail strict decoding but
	// must still be salvaged.
	caller := &fakeCaller{input: json.RawMessage(`{
		"paper_title": "P",
		"slides": [
			{"layout_type": "fancy_hero", "title": "T", "bullets": ["one", "two"]}
		]
	}`)}

	profile := schema.DefaultProfile()
	s := NewStructurer(caller, &profile)
	result, err := s.StructureDocument(context.Background(), testDoc(), schema.AudienceGeneral)
	require.NoError(t, err)

	require.Len(t, result.Plan.Slides, 1)
	slide := result.Plan.Slides[0]
	assert.Equal(t, schema.LayoutContent, slide.LayoutType)
	require.Len(t, slide.Bullets, 2)
	assert.Equal(t, "one", slide.Bullets[0].Text)
}

func TestStructureDocumentEmptyPlanIsError(t *testing.T) {
	caller := &fakeCaller{input: json.RawMessage(`{"paper_title": "P", "slides": []}`)}

	profile := schema.DefaultProfile()
	s := NewStructurer(caller, &profile)
	_, err := s.StructureDocument(context.Background(), testDoc(), schema.AudienceGeneral)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no slides")
	assert.Contains(t, err.Error(), `"paper_title"`, "error carries a raw excerpt")
}

func TestStructureDocumentPropagatesClientError(t *testing.T) {
	caller := &fakeCaller{err: llm.NewFatalError(assert.AnError)}

	profile := schema.DefaultProfile()
	s := NewStructurer(caller, &profile)
	_, err := s.StructureDocument(context.Background(), testDoc(), schema.AudienceGeneral)
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
}

func TestStructureDocumentStrictRejectsDemotions(t *testing.T) {
	// A table layout without table data is demoted in lenient mode and
	// rejected in strict mode.
	input := json.RawMessage(`{
		"paper_title": "P",
		"slides": [{"slide_number": 1, "layout_type": "table", "title": "Data"}]
	}`)

	profile := schema.DefaultProfile()

	lenient := NewStructurer(&fakeCaller{input: input}, &profile)
	result, err := lenient.StructureDocument(context.Background(), testDoc(), schema.AudienceGeneral)
	require.NoError(t, err)
	assert.Equal(t, schema.LayoutContent, result.Plan.Slides[0].LayoutType)

	strict := NewStructurer(&fakeCaller{input: input}, &profile, WithStrictValidation())
	_, err = strict.StructureDocument(context.Background(), testDoc(), schema.AudienceGeneral)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict validation")
}

func TestRefinePlanSendsCurrentPlanAndInstruction(t *testing.T) {
	caller := &fakeCaller{input: json.RawMessage(`{
		"paper_title": "P",
		"lecture_title": "Shorter lecture",
		"slides": [{"slide_number": 1, "layout_type": "title", "title": "P"}]
	}`)}

	current := &schema.PresentationPlan{
		PaperTitle:  "P",
		TotalSlides: 2,
		Slides: []schema.SlideContent{
			{SlideNumber: 1, LayoutType: schema.LayoutTitle, Title: "P"},
			{SlideNumber: 2, LayoutType: schema.LayoutContent, Title: "Old slide"},
		},
	}

	r := NewRefiner(caller)
	result, err := r.RefinePlan(context.Background(), current, "Drop the second slide.")
	require.NoError(t, err)

	assert.Equal(t, "Shorter lecture", result.Plan.LectureTitle)
	require.Len(t, result.Plan.Slides, 1)

	require.Len(t, caller.requests, 1)
	req := caller.requests[0]
	assert.Contains(t, req.UserContent, `"Old slide"`, "current plan is embedded as JSON")
	assert.Contains(t, req.UserContent, "Drop the second slide.")
	assert.Equal(t, planToolName, req.ToolName)

	// The input plan must be untouched.
	assert.Len(t, current.Slides, 2)
}

func TestRefinePlanStrictRejectsDemotions(t *testing.T) {
	// A diagram layout without mermaid code is demoted in lenient mode and
	// rejected in strict mode.
	input := json.RawMessage(`{
		"paper_title": "P",
		"slides": [{"slide_number": 1, "layout_type": "diagram", "title": "Flow"}]
	}`)
	current := &schema.PresentationPlan{
		Slides: []schema.SlideContent{{SlideNumber: 1, LayoutType: schema.LayoutTitle, Title: "P"}},
	}

	lenient := NewRefiner(&fakeCaller{input: input})
	result, err := lenient.RefinePlan(context.Background(), current, "Add a flow diagram.")
	require.NoError(t, err)
	assert.Equal(t, schema.LayoutContent, result.Plan.Slides[0].LayoutType)

	strict := NewRefiner(&fakeCaller{input: input}, WithRefinerStrict())
	_, err = strict.RefinePlan(context.Background(), current, "Add a flow diagram.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict validation")
}

func TestRefinePlanErrorKeepsCaller(t *testing.T) {
	caller := &fakeCaller{err: llm.NewTransientError(assert.AnError)}
	current := &schema.PresentationPlan{
		Slides: []schema.SlideContent{{SlideNumber: 1, LayoutType: schema.LayoutTitle}},
	}

	r := NewRefiner(caller)
	_, err := r.RefinePlan(context.Background(), current, "anything")
	require.Error(t, err)
	assert.Len(t, current.Slides, 1)
}
