// Package prompt builds the system and user prompts for plan generation
// and refinement. The prompts encode the pedagogy of the tool: one message
// per slide, bounded bullet counts, layout heuristics, and audience-aware
// phrasing.
package prompt

import (
	"fmt"
	"strings"

	"github.com/slideforge/slideforge/schema"
)

// audienceInfo pairs a display label with the instruction block injected
// into the system prompt for that audience.
type audienceInfo struct {
	Label       string
	Instruction string
}

var audienceTable = map[schema.AudienceLevel]audienceInfo{
	schema.AudiencePharmacyUndergrad: {
		Label: "Pharmacy undergraduates (3rd-4th year)",
		Instruction: "Assume undergraduate-level foundations. Gloss technical terms with a short plain-language explanation. " +
			"Emphasize clinical relevance; naming concrete drugs and diseases helps comprehension. " +
			"Keep equations to a minimum and prefer conceptual explanations.",
	},
	schema.AudienceGradStudent: {
		Label: "Graduate students (MSc/PhD)",
		Instruction: "Assume solid foundations. Cover methodological detail. " +
			"Include critical discussion such as limitations and future directions. " +
			"Technical terms may stand on their own with the original term in parentheses where helpful.",
	},
	schema.AudienceResearcher: {
		Label: "Researchers and domain experts",
		Instruction: "Assume deep domain expertise. Detail the methodology, statistical approach, and limitations. " +
			"Position the work against related literature and state what is novel about it.",
	},
	schema.AudienceGeneral: {
		Label: "General audience",
		Instruction: "Assume no specialist knowledge. Explain concepts carefully with concrete examples and analogies. " +
			"Avoid abbreviations and use plain language. " +
			"Connecting 'why it matters' to everyday life works well.",
	},
}

var depthTable = map[schema.ExplanationDepth]string{
	schema.DepthBrief:    "Favor brevity; convey only the essential points.",
	schema.DepthStandard: "Use a moderate amount of explanation, keeping the important details.",
	schema.DepthDetailed: "Explain in detail, including background knowledge and supplementary information.",
}

func languageName(lang schema.Language) string {
	if lang == schema.LanguageJapanese {
		return "Japanese"
	}
	return "English"
}

// BuildSystemPrompt assembles the generation system prompt from the
// lecturer profile and target audience.
func BuildSystemPrompt(profile *schema.LecturerProfile, audience schema.AudienceLevel) string {
	info, ok := audienceTable[audience]
	if !ok {
		info = audienceTable[schema.AudienceGradStudent]
	}
	depth, ok := depthTable[profile.ExplanationDepth]
	if !ok {
		depth = depthTable[schema.DepthStandard]
	}
	langName := languageName(profile.Language)

	var customBlock string
	if profile.CustomInstructions != "" {
		customBlock = fmt.Sprintf("\n## Additional instructions from the lecturer\n%s\n", profile.CustomInstructions)
	}

	return fmt.Sprintf(`You are an expert at creating university lecture slides.
Convert the input content (a paper, plain text, a web page, and so on) into
a clear lecture slide structure (PresentationPlan) suited to the specified
audience level.

## Core principles
- Strictly follow the **one slide, one message** principle
- Write the core message of each slide as a single sentence in key_message
- Keep slide titles concise (at most 60 characters)
- Use at most **%d bullet points** per slide
- Write detailed spoken commentary in notes (speaker notes)
- Vary layout types appropriately; never use the same layout more than 3 slides in a row

## Information density
- Aim for **15-30 characters** per bullet point
- Drop the subject from bullets; start with a verb or adjective
- Express numeric data in tables or charts, not crammed into bullets
- Avoid filler phrasing such as "regarding" or "with respect to"
- Keep the total bullet text on one slide under 200 characters

## Layout selection guide
- **Comparisons** -> two_column or table
- **Procedures and flows** -> diagram (flowchart)
- **Important conclusions** -> key_takeaway
- **Data presentation** -> table or content_with_image
- **Concept explanations** -> content (3-5 bullets)
- **Chapter breaks** -> section_header

## Audience level: %s
%s

## Explanation depth
%s
%s## Output language: %s
Write the slide content in **%s**.
If the input is in another language, translate the slide content into %s.
Keep the original technical term in parentheses alongside the translation.

## Figures and diagrams
- Figures extracted from the input content can be referenced via the image_ref field (by file name)
- Where a comparison or flow needs illustration, generate a diagram in Mermaid notation in the diagram field
- A diagram must always include both mermaid_code and fallback_description
- Quote non-ASCII node labels in Mermaid code with double quotes

## AI image generation (image_prompt)
- When a generated image would visually reinforce a slide, write an image generation prompt **in English** in the image_prompt field
- Slides that should have an image_prompt:
  - Concept or mechanism explanations where an illustration aids understanding
  - Slides where visualizing data or results helps
  - Introductions and summaries where an evocative image works
- Slides that should NOT have an image_prompt:
  - title, section_header (text is sufficient)
  - table (the data table is the focus)
  - diagram (a Mermaid diagram is already generated)
  - slides that already reference a source figure via image_ref
- How to write the prompt:
  - Be concrete, e.g. "A clean, professional illustration of ..."
  - Specify an academic style ("scientific diagram style", "educational infographic")
  - Specify a white background and clean style
  - Instruct against text or labels ("without any text labels")
  - Example: "A clean scientific illustration showing drug absorption through intestinal wall membrane, cross-section view, professional medical diagram style, white background, no text labels"

## Handling the input content
If the input is a paper:
1. Title slide (title) with the title, authors, and lecture context
2. Background and problem (content / content_with_image), 1-2 slides
3. Research objective (content / key_takeaway), 1 slide
4. Methods overview (content / diagram / table), 1-3 slides
5. Key results (content_with_image / table / two_column), 2-4 slides
6. Discussion points (content / two_column), 1-2 slides
7. Clinical significance / practical implications (key_takeaway), 1 slide
8. Summary and take-home message (key_takeaway), 1 slide

If the input is not a paper (plain text, web page, and so on):
- Do not force the background/objective/methods/results/discussion structure
- Read the logical structure of the input and choose the most fitting slide flow
- If there is no abstract, use the opening summary or lead paragraph instead

Aim for **15-25 slides** in total.
`,
		profile.MaxBulletsPerSlide,
		info.Label,
		info.Instruction,
		depth,
		customBlock,
		langName,
		langName,
		langName,
	)
}

// RefineSystemPrompt is the system prompt for conversational plan edits.
// The model receives the current plan as JSON and must return a complete
// replacement, not a patch.
const RefineSystemPrompt = `You are a slide revision assistant.
You receive the current slide structure (a PresentationPlan as JSON) and a
revision instruction from the lecturer. Return the **complete revised
PresentationPlan**.

## Rules
- Change only the slides the instruction applies to; keep the rest as-is
- Renumber slide_number sequentially from 1
- Update total_slides
- Preserve the one slide, one message principle
- Keep bullet length and count from growing excessive
`

// sourceLabels maps a source type to the heading used in the user prompt.
var sourceLabels = map[schema.SourceType]string{
	schema.SourcePDF:  "Paper",
	schema.SourceText: "Text",
	schema.SourceDocx: "Word document",
	schema.SourceURL:  "Web page",
}

// maxContentChars bounds the document body sent to the model.
const maxContentChars = 100_000

// elisionMarker replaces the removed middle of an over-long document.
const elisionMarker = "\n\n[... middle elided due to length limit ...]\n\n"

// smartTruncate keeps the head and tail of over-long text: the front 60%
// carries the framing and methods, the back 40% the results and
// conclusions, and the middle is the safest part to lose. Counts and cuts
// in runes so multi-byte text is measured like ASCII and never split
// mid-character.
func smartTruncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	front := maxChars * 60 / 100
	back := maxChars - front
	return string(runes[:front]) + elisionMarker + string(runes[len(runes)-back:])
}

// BuildUserContent renders a parsed document as the single user message
// for plan generation: metadata, the available-figure list, then the full
// markdown body (truncated when over the limit).
func BuildUserContent(doc *schema.ParsedDocument) string {
	var parts []string

	label, ok := sourceLabels[doc.SourceType]
	if !ok {
		label = "Content"
	}
	parts = append(parts, fmt.Sprintf("# %s information\nTitle: %s", label, doc.Title))

	if len(doc.Authors) > 0 {
		parts = append(parts, "Authors: "+strings.Join(doc.Authors, ", "))
	}
	if doc.Abstract != "" {
		parts = append(parts, "\n## Abstract\n"+doc.Abstract)
	}
	if len(doc.Figures) > 0 {
		var figs []string
		for _, f := range doc.Figures {
			id := f.FigureID
			if id == "" {
				id = "(figure)"
			}
			figs = append(figs, fmt.Sprintf("- %s: %s (image_ref: %s)", id, f.Caption, f.FigureID))
		}
		parts = append(parts, "\n## Available figures\n"+strings.Join(figs, "\n"))
	}

	content := smartTruncate(doc.FullMarkdown, maxContentChars)
	parts = append(parts, "\n## Full text (Markdown)\n"+content)

	return strings.Join(parts, "\n")
}

// BuildRefineUserContent renders the current plan and the revision
// instruction as the user message for a refinement call.
func BuildRefineUserContent(currentJSON []byte, instruction string) string {
	return fmt.Sprintf("## Current slide structure\n```json\n%s\n```\n\n## Revision instruction\n%s",
		currentJSON, instruction)
}
