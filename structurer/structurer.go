// Package structurer turns parsed documents into validated presentation
// plans through the LLM, and applies conversational revision instructions
// to existing plans. It owns the decode-salvage-repair pipeline on top of
// the raw structured output the llm package returns.
package structurer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slideforge/slideforge/llm"
	"github.com/slideforge/slideforge/plan"
	"github.com/slideforge/slideforge/prompt"
	"github.com/slideforge/slideforge/schema"
)

// planToolName is the forced tool both generation and refinement use.
const planToolName = "create_presentation_plan"

// StructuredCaller is the slice of the LLM client the structurer needs.
type StructuredCaller interface {
	CreateStructured(ctx context.Context, req llm.StructuredRequest) (*llm.StructuredResult, error)
}

// Result is a validated plan together with the repair warnings produced
// while validating it.
type Result struct {
	Plan     *schema.PresentationPlan
	Warnings []plan.Warning
}

// Structurer converts documents into presentation plans.
type Structurer struct {
	client  StructuredCaller
	profile *schema.LecturerProfile
	logger  *slog.Logger
	strict  bool
}

// StructurerOption configures a Structurer.
type StructurerOption func(*Structurer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StructurerOption {
	return func(s *Structurer) { s.logger = logger }
}

// WithStrictValidation makes layout demotions an error instead of a
// silent repair. The default is lenient: a demoted slide is better than a
// failed generation.
func WithStrictValidation() StructurerOption {
	return func(s *Structurer) { s.strict = true }
}

// NewStructurer creates a structurer bound to a profile.
func NewStructurer(client StructuredCaller, profile *schema.LecturerProfile, opts ...StructurerOption) *Structurer {
	s := &Structurer{
		client:  client,
		profile: profile,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StructureDocument generates a plan for doc aimed at the given audience.
// The returned plan has passed validation and repair; warnings describe
// anything that was fixed along the way.
func (s *Structurer) StructureDocument(ctx context.Context, doc *schema.ParsedDocument, audience schema.AudienceLevel) (*Result, error) {
	result, err := s.client.CreateStructured(ctx, llm.StructuredRequest{
		System:          prompt.BuildSystemPrompt(s.profile, audience),
		UserContent:     prompt.BuildUserContent(doc),
		ToolName:        planToolName,
		ToolDescription: "Create a lecture slide structure from the input content",
		ResponseSchema:  schema.PlanJSONSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("structure document: %w", err)
	}

	s.logger.Debug("structured output received",
		"request_id", result.RequestID,
		"model", result.Model,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens)

	return s.decodeAndRepair(result.Input)
}

// decodeAndRepair turns raw tool input into a validated plan: strict
// decode first, field-by-field coercion when that fails, then structural
// repair. An empty plan is an error either way, since nothing downstream
// can do anything with zero slides.
func (s *Structurer) decodeAndRepair(raw json.RawMessage) (*Result, error) {
	var p schema.PresentationPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("strict plan decode failed, coercing", "error", err)
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("response is not a JSON object: %w (raw: %s)", err, excerpt(raw))
		}
		p = *plan.Coerce(m)
	}

	if len(p.Slides) == 0 {
		return nil, fmt.Errorf("model returned a plan with no slides (raw: %s)", excerpt(raw))
	}

	fixed, warnings := plan.ValidateAndFix(&p)
	for _, w := range warnings {
		s.logger.Info("plan repair", "slide", w.SlideNumber, "message", w.Message)
	}
	if s.strict {
		if n := plan.DemotionCount(warnings); n > 0 {
			return nil, fmt.Errorf("strict validation: %d slide(s) required layout demotion", n)
		}
	}
	return &Result{Plan: fixed, Warnings: warnings}, nil
}

// excerpt truncates raw JSON for inclusion in error messages.
func excerpt(raw json.RawMessage) string {
	const limit = 300
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}

// Refiner applies revision instructions to existing plans.
type Refiner struct {
	client StructuredCaller
	logger *slog.Logger
	strict bool
}

// RefinerOption configures a Refiner.
type RefinerOption func(*Refiner)

// WithRefinerLogger sets the logger.
func WithRefinerLogger(logger *slog.Logger) RefinerOption {
	return func(r *Refiner) { r.logger = logger }
}

// WithRefinerStrict makes layout demotions in the revised plan an error
// instead of a silent repair.
func WithRefinerStrict() RefinerOption {
	return func(r *Refiner) { r.strict = true }
}

// NewRefiner creates a refiner.
func NewRefiner(client StructuredCaller, opts ...RefinerOption) *Refiner {
	r := &Refiner{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RefinePlan sends the current plan and an instruction to the model and
// returns the complete revised plan, validated and repaired. The input
// plan is not modified; on error the caller keeps its current plan.
func (r *Refiner) RefinePlan(ctx context.Context, current *schema.PresentationPlan, instruction string) (*Result, error) {
	currentJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal current plan: %w", err)
	}

	result, err := r.client.CreateStructured(ctx, llm.StructuredRequest{
		System:          prompt.RefineSystemPrompt,
		UserContent:     prompt.BuildRefineUserContent(currentJSON, instruction),
		ToolName:        planToolName,
		ToolDescription: "Return the revised slide structure",
		ResponseSchema:  schema.PlanJSONSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("refine plan: %w", err)
	}

	s := &Structurer{logger: r.logger, strict: r.strict}
	return s.decodeAndRepair(result.Input)
}
