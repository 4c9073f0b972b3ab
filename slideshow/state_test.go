package slideshow

import (
	"fmt"
	"testing"
	"time"

	"github.com/aouyang1/photoslideshow/store"
)

func photos(ids ...string) []store.Photo {
	out := make([]store.Photo, len(ids))
	for i, id := range ids {
		out[i] = store.Photo{ID: id}
	}
	return out
}

func numbered(n int) []store.Photo {
	out := make([]store.Photo, n)
	for i := range out {
		out[i] = store.Photo{ID: fmt.Sprintf("p%d", i)}
	}
	return out
}

func TestAdvanceAndRetreatAreCyclic(t *testing.T) {
	for n := 2; n <= 7; n++ {
		for start := 0; start < n; start++ {
			s := NewState()
			s.ReplacePhotos(numbered(n))
			s.Cursor = start

			for i := 0; i < n; i++ {
				s.Advance()
			}
			if s.Cursor != start {
				t.Fatalf("n=%d start=%d: advance %d times ended at %d", n, start, n, s.Cursor)
			}

			for i := 0; i < n; i++ {
				s.Retreat()
			}
			if s.Cursor != start {
				t.Fatalf("n=%d start=%d: retreat %d times ended at %d", n, start, n, s.Cursor)
			}
		}
	}
}

func TestAdvanceAndRetreatNoopForShortSequences(t *testing.T) {
	for _, n := range []int{0, 1} {
		for _, cursor := range []int{0, 1, 5} {
			s := NewState()
			s.ReplacePhotos(numbered(n))
			s.Cursor = cursor

			if s.Advance() || s.Cursor != cursor {
				t.Errorf("n=%d cursor=%d: advance moved to %d", n, cursor, s.Cursor)
			}
			if s.Retreat() || s.Cursor != cursor {
				t.Errorf("n=%d cursor=%d: retreat moved to %d", n, cursor, s.Cursor)
			}
		}
	}
}

func TestRetreatWrapsToEnd(t *testing.T) {
	s := NewState()
	s.ReplacePhotos(photos("a", "b", "c"))
	s.Retreat()
	if s.Cursor != 2 {
		t.Fatalf("expected cursor 2, got %d", s.Cursor)
	}
}

func TestJumpToChangesOnlyCursor(t *testing.T) {
	s := NewState()
	s.ReplacePhotos(photos("a", "b", "c", "d"))
	s.TogglePlay()
	_ = s.SetInterval(10 * time.Second)

	for i := 0; i < 4; i++ {
		before := *s
		if !s.JumpTo(i) {
			t.Fatalf("JumpTo(%d) rejected", i)
		}
		if s.Cursor != i {
			t.Fatalf("JumpTo(%d) left cursor at %d", i, s.Cursor)
		}
		if s.Playing != before.Playing || s.Interval != before.Interval || s.Err != before.Err || len(s.Photos) != len(before.Photos) {
			t.Fatalf("JumpTo(%d) changed more than the cursor", i)
		}
	}

	if s.JumpTo(4) || s.JumpTo(-1) {
		t.Fatal("out of range jump accepted")
	}
	if s.Cursor != 3 {
		t.Fatalf("rejected jump moved cursor to %d", s.Cursor)
	}
}

func TestSetInterval(t *testing.T) {
	s := NewState()
	if s.Interval != DefaultInterval {
		t.Fatalf("default interval = %v", s.Interval)
	}
	for _, d := range Intervals {
		if err := s.SetInterval(d); err != nil {
			t.Fatalf("SetInterval(%v): %v", d, err)
		}
	}
	if err := s.SetInterval(3 * time.Second); err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if s.Interval != 10*time.Second {
		t.Fatalf("invalid interval changed state to %v", s.Interval)
	}
}

func TestReplacePhotosResetsOutOfRangeCursor(t *testing.T) {
	for m := 2; m <= 6; m++ {
		for k := 0; k < m; k++ {
			for c := k; c < m; c++ {
				s := NewState()
				s.ReplacePhotos(numbered(m))
				s.Cursor = c

				s.ReplacePhotos(numbered(k))
				if k > 0 && (s.Cursor < 0 || s.Cursor >= k) {
					t.Fatalf("m=%d k=%d c=%d: cursor %d out of range", m, k, c, s.Cursor)
				}
				if s.Cursor != 0 {
					t.Fatalf("m=%d k=%d c=%d: expected reset to 0, got %d", m, k, c, s.Cursor)
				}
			}
		}
	}
}

func TestReplacePhotosKeepsInRangeCursor(t *testing.T) {
	s := NewState()
	s.ReplacePhotos(photos("a", "b", "c"))
	s.Cursor = 1
	s.ReplacePhotos(photos("x", "y"))
	if s.Cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", s.Cursor)
	}
}

func TestStatusPriority(t *testing.T) {
	s := NewState()
	if got := s.Status(); got != StatusEmpty {
		t.Fatalf("fresh state status = %v", got)
	}

	s.Fail(LoadFailedMessage)
	if got := s.Status(); got != StatusError {
		t.Fatalf("failed state status = %v", got)
	}

	s.InFlight = 1
	if got := s.Status(); got != StatusLoading {
		t.Fatalf("loading should win over error, got %v", got)
	}
	s.InFlight = 0

	s.ReplacePhotos(photos("a"))
	if got := s.Status(); got != StatusReady {
		t.Fatalf("success should clear error, got %v", got)
	}

	s.Fail(LoadFailedMessage)
	s.ReplacePhotos(nil)
	if got := s.Status(); got != StatusEmpty {
		t.Fatalf("empty success should clear error, got %v", got)
	}
	if s.Photos == nil {
		t.Fatal("photos must never be nil")
	}
}

func TestAutoAdvance(t *testing.T) {
	s := NewState()
	s.ReplacePhotos(photos("a"))
	if s.AutoAdvance() {
		t.Fatal("single photo must not auto advance")
	}
	s.ReplacePhotos(photos("a", "b"))
	if !s.AutoAdvance() {
		t.Fatal("two playing photos should auto advance")
	}
	s.TogglePlay()
	if s.AutoAdvance() {
		t.Fatal("paused slideshow must not auto advance")
	}
	s.TogglePlay()
	s.Fail(LoadFailedMessage)
	if s.AutoAdvance() {
		t.Fatal("error view must not auto advance")
	}
}

func TestViewCurrent(t *testing.T) {
	s := NewState()
	if _, ok := s.View().Current(); ok {
		t.Fatal("empty view should have no current photo")
	}
	s.ReplacePhotos(photos("a", "b"))
	s.Advance()
	p, ok := s.View().Current()
	if !ok || p.ID != "b" {
		t.Fatalf("expected current b, got %+v", p)
	}
}
