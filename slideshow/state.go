// Package slideshow is the viewer's state machine: the synced photo
// sequence, the cursor into it, and the playback mode.
package slideshow

import (
	"errors"
	"slices"
	"time"

	"github.com/aouyang1/photoslideshow/store"
)

type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusEmpty
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusEmpty:
		return "empty"
	case StatusReady:
		return "ready"
	}
	return "unknown"
}

const (
	DefaultInterval = 5 * time.Second
	ResyncInterval  = 30 * time.Second

	LoadFailedMessage = "Failed to load photos. Please check if the server is running."
)

// Intervals are the selectable auto-advance speeds, fastest first.
var Intervals = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

var ErrInvalidInterval = errors.New("slide interval must be one of 2s, 5s or 10s")

// ValidInterval reports whether d is one of Intervals.
func ValidInterval(d time.Duration) bool {
	return slices.Contains(Intervals, d)
}

// State is mutated only by the controller loop. Photos is never patched in
// place, only replaced.
type State struct {
	Photos   []store.Photo
	Cursor   int
	Playing  bool
	Interval time.Duration

	// Err is the message of the last failed sync, cleared by any successful one.
	Err string
	// InFlight counts syncs that have not settled yet.
	InFlight int
}

func NewState() *State {
	return &State{
		Photos:   []store.Photo{},
		Playing:  true,
		Interval: DefaultInterval,
	}
}

// Status applies the render priority loading > error > empty > ready.
func (s *State) Status() Status {
	switch {
	case s.InFlight > 0:
		return StatusLoading
	case s.Err != "":
		return StatusError
	case len(s.Photos) == 0:
		return StatusEmpty
	}
	return StatusReady
}

// Advance moves to the next photo, wrapping at the end. It reports whether the cursor moved.
func (s *State) Advance() bool {
	n := len(s.Photos)
	if n <= 1 {
		return false
	}
	s.Cursor = (s.Cursor + 1) % n
	return true
}

// Retreat moves to the previous photo, wrapping at the start.
func (s *State) Retreat() bool {
	n := len(s.Photos)
	if n <= 1 {
		return false
	}
	s.Cursor = (s.Cursor - 1 + n) % n
	return true
}

// JumpTo sets the cursor to i. Out of range indexes are rejected.
func (s *State) JumpTo(i int) bool {
	if i < 0 || i >= len(s.Photos) {
		return false
	}
	s.Cursor = i
	return true
}

func (s *State) TogglePlay() {
	s.Playing = !s.Playing
}

func (s *State) SetInterval(d time.Duration) error {
	if !ValidInterval(d) {
		return ErrInvalidInterval
	}
	s.Interval = d
	return nil
}

// ReplacePhotos installs the result of a successful sync. A cursor left out
// of range by a shorter sequence resets to 0.
func (s *State) ReplacePhotos(photos []store.Photo) {
	s.Photos = slices.Clone(photos)
	if s.Photos == nil {
		s.Photos = []store.Photo{}
	}
	s.Err = ""
	if s.Cursor >= len(s.Photos) {
		s.Cursor = 0
	}
}

// Fail records a failed sync. The previous sequence is kept but hidden behind the error.
func (s *State) Fail(msg string) {
	s.Err = msg
}

// Navigable reports whether the cursor may move: photos exist and no error is shown.
func (s *State) Navigable() bool {
	return s.Err == "" && len(s.Photos) > 0
}

// AutoAdvance reports whether the auto-advance timer should run.
func (s *State) AutoAdvance() bool {
	return s.Playing && s.Err == "" && len(s.Photos) > 1
}

// View copies the state for readers outside the loop.
func (s *State) View() View {
	return View{
		Status:   s.Status(),
		Photos:   s.Photos,
		Cursor:   s.Cursor,
		Playing:  s.Playing,
		Interval: s.Interval,
		Error:    s.Err,
	}
}

// View is an immutable snapshot of the slideshow. Photos is shared with the
// state but never modified after a sync installs it.
type View struct {
	Status   Status
	Photos   []store.Photo
	Cursor   int
	Playing  bool
	Interval time.Duration
	Error    string
}

// Current returns the displayed photo, if any.
func (v View) Current() (store.Photo, bool) {
	if v.Cursor < 0 || v.Cursor >= len(v.Photos) {
		return store.Photo{}, false
	}
	return v.Photos[v.Cursor], true
}

// CanNavigate is false when prev/next would be no-ops.
func (v View) CanNavigate() bool {
	return len(v.Photos) > 1
}
