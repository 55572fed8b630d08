package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slideforge/slideforge/schema"
)

func storeWithSlides(titles ...string) *Store {
	s := NewStore()
	p := &schema.PresentationPlan{LectureTitle: "Deck"}
	for i, title := range titles {
		p.Slides = append(p.Slides, schema.SlideContent{
			SlideNumber: i + 1,
			LayoutType:  schema.LayoutContent,
			Title:       title,
		})
	}
	p.Normalize()
	s.SetPlan(p)
	return s
}

func titles(p *schema.PresentationPlan) []string {
	out := make([]string, len(p.Slides))
	for i, s := range p.Slides {
		out[i] = s.Title
	}
	return out
}

func TestStoreUpdateSlide(t *testing.T) {
	s := storeWithSlides("a", "b", "c")
	before := s.Plan()

	require.NoError(t, s.UpdateSlide(1, func(sl *schema.SlideContent) {
		sl.Title = "B!"
	}))

	assert.Equal(t, []string{"a", "B!", "c"}, titles(s.Plan()))
	assert.Equal(t, "b", before.Slides[1].Title, "mutation replaces, never edits in place")
	assert.Error(t, s.UpdateSlide(9, func(*schema.SlideContent) {}))
}

func TestStoreReorderSlides(t *testing.T) {
	s := storeWithSlides("a", "b", "c", "d")

	require.NoError(t, s.ReorderSlides(3, 0))

	assert.Equal(t, []string{"d", "a", "b", "c"}, titles(s.Plan()))
	for i, sl := range s.Plan().Slides {
		assert.Equal(t, i+1, sl.SlideNumber)
	}

	require.NoError(t, s.ReorderSlides(0, 2))
	assert.Equal(t, []string{"a", "b", "d", "c"}, titles(s.Plan()))
}

func TestStoreDeleteAndInsert(t *testing.T) {
	s := storeWithSlides("a", "b", "c")

	require.NoError(t, s.DeleteSlide(1))
	assert.Equal(t, []string{"a", "c"}, titles(s.Plan()))
	assert.Equal(t, 2, s.Plan().TotalSlides)

	require.NoError(t, s.InsertSlide(-1, schema.SlideContent{Title: "front"}))
	require.NoError(t, s.InsertSlide(2, schema.SlideContent{Title: "end"}))
	assert.Equal(t, []string{"front", "a", "c", "end"}, titles(s.Plan()))
	for i, sl := range s.Plan().Slides {
		assert.Equal(t, i+1, sl.SlideNumber)
	}

	assert.Error(t, s.InsertSlide(9, schema.SlideContent{}))
}

func TestStoreUndoRedoRoundTrip(t *testing.T) {
	s := storeWithSlides("a", "b")

	s.PushHistory()
	require.NoError(t, s.DeleteSlide(0))
	s.PushHistory()
	require.NoError(t, s.UpdateSlide(0, func(sl *schema.SlideContent) { sl.Title = "B2" }))
	s.PushHistory()

	assert.Equal(t, []string{"B2"}, titles(s.Plan()))

	require.True(t, s.Undo())
	assert.Equal(t, []string{"b"}, titles(s.Plan()))
	require.True(t, s.Undo())
	assert.Equal(t, []string{"a", "b"}, titles(s.Plan()))
	assert.False(t, s.Undo())

	require.True(t, s.Redo())
	assert.Equal(t, []string{"b"}, titles(s.Plan()))
}

func TestStoreFirstRefinementUndoable(t *testing.T) {
	// The interactive session pattern: snapshot after installing each plan
	// state, so the very first edit can be undone.
	s := NewStore()
	s.SetPlan(&schema.PresentationPlan{LectureTitle: "loaded", TotalSlides: 1,
		Slides: []schema.SlideContent{{SlideNumber: 1, Title: "loaded"}}})
	s.PushHistory()

	s.SetPlan(&schema.PresentationPlan{LectureTitle: "refined", TotalSlides: 1,
		Slides: []schema.SlideContent{{SlideNumber: 1, Title: "refined"}}})
	s.PushHistory()

	require.True(t, s.Undo(), "first refinement must be undoable")
	assert.Equal(t, "loaded", s.Plan().LectureTitle)
	require.True(t, s.Redo())
	assert.Equal(t, "refined", s.Plan().LectureTitle)
}

func TestStoreImagesSurviveUndo(t *testing.T) {
	s := storeWithSlides("a")
	s.PushHistory()
	s.AddImage(1, []byte("png"))
	require.NoError(t, s.UpdateSlide(0, func(sl *schema.SlideContent) { sl.Title = "a2" }))
	s.PushHistory()
	s.Undo()

	assert.Equal(t, []byte("png"), s.Images()[1], "images are outside undo history")
}

func TestStoreOperationsWithoutPlan(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.UpdateSlide(0, func(*schema.SlideContent) {}))
	assert.Error(t, s.DeleteSlide(0))
	assert.Error(t, s.InsertSlide(-1, schema.SlideContent{}))
	assert.False(t, s.Undo())
	s.PushHistory()
	assert.Equal(t, 0, s.History().Len())
}

func TestStoreReset(t *testing.T) {
	s := storeWithSlides("a")
	s.PushHistory()
	s.AddImage(1, []byte("x"))

	s.Reset()

	assert.Nil(t, s.Plan())
	assert.Equal(t, 0, s.History().Len())
	assert.Empty(t, s.Images())
}
