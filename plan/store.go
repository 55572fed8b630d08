package plan

import (
	"fmt"

	"github.com/slideforge/slideforge/schema"
)

// Store is the single owner of the live presentation plan. All mutation
// goes through named operations that replace the plan wholesale (never
// partial in-place aliasing), which is what makes snapshot-based undo
// correct without any merge logic.
//
// Store is not safe for concurrent use; the pipeline is single-threaded
// per user action by design.
type Store struct {
	plan    *schema.PresentationPlan
	history *History

	// images holds generated slide images keyed by slide number. They are
	// not part of undo history: snapshots cover the plan only.
	images map[int][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		history: NewHistory(),
		images:  make(map[int][]byte),
	}
}

// Plan returns the live plan, or nil before the first SetPlan.
func (s *Store) Plan() *schema.PresentationPlan { return s.plan }

// History exposes the undo stack for inspection.
func (s *Store) History() *History { return s.history }

// SetPlan replaces the live plan.
func (s *Store) SetPlan(p *schema.PresentationPlan) {
	s.plan = p
}

// PushHistory snapshots the live plan. Callers invoke it before every
// mutation that should be reversible.
func (s *Store) PushHistory() {
	if s.plan == nil {
		return
	}
	s.history.Push(s.plan)
}

// Undo replaces the live plan with the previous snapshot. No-op at the
// oldest snapshot.
func (s *Store) Undo() bool {
	p := s.history.Undo()
	if p == nil {
		return false
	}
	s.plan = p
	return true
}

// Redo replaces the live plan with the next snapshot. No-op at the newest
// snapshot.
func (s *Store) Redo() bool {
	p := s.history.Redo()
	if p == nil {
		return false
	}
	s.plan = p
	return true
}

// UpdateSlide applies fn to a copy of the slide at index and installs the
// result. Slide numbering is untouched: field edits cannot reorder.
func (s *Store) UpdateSlide(index int, fn func(*schema.SlideContent)) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	next := s.plan.Clone()
	fn(&next.Slides[index])
	s.plan = next
	return nil
}

// ReorderSlides moves the slide at from to position to and renumbers.
func (s *Store) ReorderSlides(from, to int) error {
	if err := s.checkIndex(from); err != nil {
		return err
	}
	if err := s.checkIndex(to); err != nil {
		return err
	}
	next := s.plan.Clone()
	moved := next.Slides[from]
	next.Slides = append(next.Slides[:from], next.Slides[from+1:]...)
	rest := append([]schema.SlideContent{}, next.Slides[to:]...)
	next.Slides = append(append(next.Slides[:to:to], moved), rest...)
	next.Normalize()
	s.plan = next
	return nil
}

// DeleteSlide removes the slide at index and renumbers.
func (s *Store) DeleteSlide(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	next := s.plan.Clone()
	next.Slides = append(next.Slides[:index], next.Slides[index+1:]...)
	next.Normalize()
	s.plan = next
	return nil
}

// InsertSlide places slide after afterIndex (-1 inserts at the front) and
// renumbers.
func (s *Store) InsertSlide(afterIndex int, slide schema.SlideContent) error {
	if s.plan == nil {
		return fmt.Errorf("no plan loaded")
	}
	if afterIndex < -1 || afterIndex >= len(s.plan.Slides) {
		return fmt.Errorf("insert position %d out of range [-1, %d)", afterIndex, len(s.plan.Slides))
	}
	next := s.plan.Clone()
	at := afterIndex + 1
	rest := append([]schema.SlideContent{}, next.Slides[at:]...)
	next.Slides = append(append(next.Slides[:at:at], slide), rest...)
	next.Normalize()
	s.plan = next
	return nil
}

// AddImage records generated image bytes for a slide number.
func (s *Store) AddImage(slideNumber int, data []byte) {
	s.images[slideNumber] = data
}

// Images returns the generated image map keyed by slide number.
func (s *Store) Images() map[int][]byte { return s.images }

// Reset clears the plan, history, and images.
func (s *Store) Reset() {
	s.plan = nil
	s.history = NewHistory()
	s.images = make(map[int][]byte)
}

func (s *Store) checkIndex(index int) error {
	if s.plan == nil {
		return fmt.Errorf("no plan loaded")
	}
	if index < 0 || index >= len(s.plan.Slides) {
		return fmt.Errorf("slide index %d out of range [0, %d)", index, len(s.plan.Slides))
	}
	return nil
}
