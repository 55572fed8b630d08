package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slideforge/slideforge/schema"
)

// fakeSource fails for prompts listed in failOn and returns stub PNG bytes
// otherwise.
type fakeSource struct {
	failOn  map[string]bool
	prompts []string
}

func (f *fakeSource) GenerateImage(_ context.Context, prompt string) ([]byte, error) {
	f.prompts = append(f.prompts, prompt)
	if f.failOn[prompt] {
		return nil, fmt.Errorf("generation refused")
	}
	return []byte("png:" + prompt), nil
}

func augmentablePlan() *schema.PresentationPlan {
	return &schema.PresentationPlan{
		PaperTitle:  "P",
		TotalSlides: 5,
		Slides: []schema.SlideContent{
			{SlideNumber: 1, LayoutType: schema.LayoutTitle, Title: "P"},
			{SlideNumber: 2, LayoutType: schema.LayoutContent, Title: "A", ImagePrompt: "prompt a"},
			{SlideNumber: 3, LayoutType: schema.LayoutContent, Title: "B", ImagePrompt: "prompt b"},
			{SlideNumber: 4, LayoutType: schema.LayoutDiagram, Title: "C", ImagePrompt: "prompt c"},
			{SlideNumber: 5, LayoutType: schema.LayoutContentWithImage, Title: "D",
				ImagePrompt: "prompt d", ImageRef: "fig1.png"},
		},
	}
}

func TestAugmentPlanGeneratesForEligibleSlides(t *testing.T) {
	source := &fakeSource{}
	a := NewAugmenter(source, nil)

	var progress [][2]int
	result, err := a.AugmentPlan(context.Background(), augmentablePlan(), func(current, total int) {
		progress = append(progress, [2]int{current, total})
	})
	require.NoError(t, err)

	// Slides 2, 3, 4 are eligible; slide 5 already has an image_ref.
	assert.Equal(t, 3, result.GeneratedCount)
	assert.Equal(t, []string{"prompt a", "prompt b", "prompt c"}, source.prompts)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	slides := result.Plan.Slides
	assert.Equal(t, "generated_slide_2.png", slides[1].ImageRef)
	assert.Equal(t, schema.LayoutContentWithImage, slides[1].LayoutType, "content promoted")
	assert.Equal(t, schema.LayoutDiagram, slides[3].LayoutType, "diagram layout preserved")
	assert.Equal(t, "fig1.png", slides[4].ImageRef, "existing reference untouched")

	assert.Equal(t, []byte("png:prompt a"), result.Images[2])
	assert.Empty(t, result.Failures)
}

func TestAugmentPlanIsolatesPerSlideFailures(t *testing.T) {
	source := &fakeSource{failOn: map[string]bool{"prompt b": true}}
	a := NewAugmenter(source, nil)

	result, err := a.AugmentPlan(context.Background(), augmentablePlan(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.GeneratedCount)
	require.Contains(t, result.Failures, 3)
	assert.ErrorContains(t, result.Failures[3], "generation refused")

	// The failed slide keeps its original state.
	failed := result.Plan.Slides[2]
	assert.Empty(t, failed.ImageRef)
	assert.Equal(t, schema.LayoutContent, failed.LayoutType)

	// Slides after the failure still got images.
	assert.Equal(t, "generated_slide_4.png", result.Plan.Slides[3].ImageRef)
}

func TestAugmentPlanDoesNotModifyInput(t *testing.T) {
	source := &fakeSource{}
	a := NewAugmenter(source, nil)

	original := augmentablePlan()
	_, err := a.AugmentPlan(context.Background(), original, nil)
	require.NoError(t, err)

	assert.Empty(t, original.Slides[1].ImageRef)
	assert.Equal(t, schema.LayoutContent, original.Slides[1].LayoutType)
}

func TestAugmentPlanNoEligibleSlides(t *testing.T) {
	source := &fakeSource{}
	a := NewAugmenter(source, nil)

	p := &schema.PresentationPlan{Slides: []schema.SlideContent{
		{SlideNumber: 1, LayoutType: schema.LayoutTitle},
	}}
	result, err := a.AugmentPlan(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Zero(t, result.GeneratedCount)
	assert.Empty(t, source.prompts)
}

func TestGenerateImageRequestShape(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/"+DefaultModel+":predict", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Instances, 1)
		assert.Equal(t, "a clean diagram", req.Instances[0].Prompt)
		assert.Equal(t, "16:9", req.Parameters.AspectRatio)
		assert.Equal(t, "image/png", req.Parameters.OutputMimeType)
		assert.Equal(t, "dont_allow", req.Parameters.PersonGeneration)

		fmt.Fprintf(w, `{"predictions": [{"bytesBase64Encoded": %q, "mimeType": "image/png"}]}`,
			base64.StdEncoding.EncodeToString(png))
	}))
	defer server.Close()

	g := NewGenerator("test-key", WithBaseURL(server.URL), WithRateLimit(1000))
	data, err := g.GenerateImage(context.Background(), "a clean diagram")
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestGenerateImageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": "quota exceeded"}`)
	}))
	defer server.Close()

	g := NewGenerator("k", WithBaseURL(server.URL), WithRateLimit(1000))
	_, err := g.GenerateImage(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateImageEmptyPredictions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"predictions": []}`)
	}))
	defer server.Close()

	g := NewGenerator("k", WithBaseURL(server.URL), WithRateLimit(1000))
	_, err := g.GenerateImage(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image generated")
}
