package slideshow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aouyang1/photoslideshow/metrics"
	"github.com/aouyang1/photoslideshow/store"
	"github.com/jonboulle/clockwork"
)

const defaultSyncTimeout = 10 * time.Second

// Fetcher returns the authoritative photo list in display order.
type Fetcher interface {
	ListPhotos(ctx context.Context) ([]store.Photo, error)
}

// Controller owns one slideshow. Every event (user input, timers, sync
// results) is a message handled by the single goroutine running Run.
type Controller struct {
	fetcher        Fetcher
	clock          clockwork.Clock
	metrics        *metrics.Metrics
	syncTimeout    time.Duration
	resyncInterval time.Duration

	events  chan any
	done    chan struct{}
	running atomic.Bool
	view    atomic.Pointer[View]
}

type Option func(*Controller)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithSyncTimeout bounds a single photo list request.
func WithSyncTimeout(d time.Duration) Option {
	return func(c *Controller) { c.syncTimeout = d }
}

func WithResyncInterval(d time.Duration) Option {
	return func(c *Controller) { c.resyncInterval = d }
}

func NewController(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:        fetcher,
		clock:          clockwork.NewRealClock(),
		syncTimeout:    defaultSyncTimeout,
		resyncInterval: ResyncInterval,
		events:         make(chan any, 64),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	initial := NewState().View()
	initial.Status = StatusLoading
	c.view.Store(&initial)
	return c
}

type (
	advanceMsg     struct{}
	retreatMsg     struct{}
	jumpMsg        struct{ index int }
	togglePlayMsg  struct{}
	setIntervalMsg struct{ interval time.Duration }
	refreshMsg     struct{}
	flushMsg       struct{ done chan struct{} }
)

type syncResult struct {
	seq     uint64
	photos  []store.Photo
	err     error
	elapsed time.Duration
}

// View returns the latest published snapshot.
func (c *Controller) View() View {
	return *c.view.Load()
}

func (c *Controller) Next() { c.send(advanceMsg{}) }
func (c *Controller) Prev() { c.send(retreatMsg{}) }
func (c *Controller) JumpTo(i int) { c.send(jumpMsg{index: i}) }
func (c *Controller) TogglePlay() { c.send(togglePlayMsg{}) }
func (c *Controller) Refresh() { c.send(refreshMsg{}) }

// SetInterval changes the auto-advance speed from the next armed timer on.
func (c *Controller) SetInterval(d time.Duration) error {
	if !ValidInterval(d) {
		return ErrInvalidInterval
	}
	c.send(setIntervalMsg{interval: d})
	return nil
}

// Flush blocks until every message sent before it has been applied and
// published, so a caller can render the result of its own action.
func (c *Controller) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case c.events <- flushMsg{done: done}:
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleKey maps a browser key name to its action and reports whether the key is bound.
func (c *Controller) HandleKey(key string) bool {
	switch key {
	case "ArrowLeft":
		c.Prev()
	case "ArrowRight":
		c.Next()
	case " ", "Space", "Spacebar":
		c.TogglePlay()
	case "r", "R":
		c.Refresh()
	default:
		return false
	}
	return true
}

func (c *Controller) send(msg any) {
	select {
	case c.events <- msg:
	case <-c.done:
	}
}

// Run mounts the slideshow: it syncs immediately, resyncs periodically and
// processes events until ctx is cancelled. No timer or sync goroutine
// outlives it. Run may be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("slideshow controller already running")
	}
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	l := &runLoop{
		Controller: c,
		ctx:        ctx,
		state:      NewState(),
		results:    make(chan syncResult),
	}
	defer l.wg.Wait()
	defer cancel()
	defer l.stopTimer()

	resync := c.clock.NewTicker(c.resyncInterval)
	defer resync.Stop()

	l.startSync()
	l.publish()

	for {
		var slideC <-chan time.Time
		if l.slide != nil {
			slideC = l.slide.Chan()
		}

		select {
		case <-ctx.Done():
			slog.Info("slideshow stopped")
			return nil
		case <-resync.Chan():
			l.startSync()
		case <-slideC:
			l.slide = nil
			if l.state.Advance() {
				c.metrics.ObserveAdvance("timer")
			}
			l.rearm(true)
		case r := <-l.results:
			l.applySync(r)
			l.rearm(false)
		case msg := <-c.events:
			if f, ok := msg.(flushMsg); ok {
				close(f.done)
				continue
			}
			l.rearm(l.handle(msg))
		}
		l.publish()
	}
}

// runLoop is the state owned by one Run call.
type runLoop struct {
	*Controller

	ctx     context.Context
	wg      sync.WaitGroup
	state   *State
	results chan syncResult

	seq     uint64
	applied uint64

	slide    clockwork.Timer
	armedFor timerKey
}

// timerKey is what the auto-advance timer depends on; a change re-arms it.
type timerKey struct {
	photos   int
	playing  bool
	interval time.Duration
}

func (l *runLoop) publish() {
	v := l.state.View()
	l.view.Store(&v)
}

// handle applies a user message and reports whether the user moved the
// cursor, which restarts the countdown for the newly shown photo.
func (l *runLoop) handle(msg any) bool {
	s := l.state
	switch m := msg.(type) {
	case advanceMsg:
		if s.Navigable() && s.Advance() {
			l.metrics.ObserveAdvance("user")
			return true
		}
	case retreatMsg:
		if s.Navigable() && s.Retreat() {
			l.metrics.ObserveAdvance("user")
			return true
		}
	case jumpMsg:
		if !s.Navigable() {
			return false
		}
		if !s.JumpTo(m.index) {
			slog.Warn("ignoring jump outside the photo sequence", "index", m.index, "photos", len(s.Photos))
			return false
		}
		l.metrics.ObserveAdvance("user")
		return true
	case togglePlayMsg:
		s.TogglePlay()
		slog.Debug("toggled playback", "playing", s.Playing)
	case setIntervalMsg:
		if err := s.SetInterval(m.interval); err != nil {
			slog.Warn("ignoring slide interval", "interval", m.interval, "error", err)
		}
	case refreshMsg:
		l.startSync()
	default:
		slog.Error("unknown slideshow message", "message", msg)
	}
	return false
}

func (l *runLoop) startSync() {
	l.seq++
	seq := l.seq
	l.state.InFlight++
	started := l.clock.Now()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(l.ctx, l.syncTimeout)
		photos, err := l.fetcher.ListPhotos(ctx)
		cancel()

		select {
		case l.results <- syncResult{seq: seq, photos: photos, err: err, elapsed: l.clock.Since(started)}:
		case <-l.ctx.Done():
		}
	}()
}

// applySync lands a settled sync. A result older than one already applied
// is dropped so the most recently triggered sync wins.
func (l *runLoop) applySync(r syncResult) {
	s := l.state
	s.InFlight--

	if r.seq < l.applied {
		slog.Debug("dropping stale photo sync", "seq", r.seq, "applied", l.applied)
		l.metrics.ObserveSync("stale", r.elapsed)
		return
	}
	l.applied = r.seq

	if r.err != nil {
		slog.Warn("error while fetching photos", "error", r.err)
		s.Fail(LoadFailedMessage)
		l.metrics.ObserveSync("error", r.elapsed)
		return
	}

	s.ReplacePhotos(r.photos)
	l.metrics.SetPhotos(len(s.Photos))
	if len(s.Photos) == 0 {
		l.metrics.ObserveSync("empty", r.elapsed)
		slog.Info("photo sync returned no photos")
		return
	}
	l.metrics.ObserveSync("ready", r.elapsed)
	slog.Debug("photo sync applied", "photos", len(s.Photos), "cursor", s.Cursor)
}

// rearm keeps exactly one auto-advance timer alive while the slideshow
// should advance. It restarts the timer when its inputs changed or force is set.
func (l *runLoop) rearm(force bool) {
	s := l.state
	key := timerKey{photos: len(s.Photos), playing: s.Playing, interval: s.Interval}

	if !s.AutoAdvance() {
		l.stopTimer()
		l.armedFor = key
		return
	}
	if l.slide != nil && !force && key == l.armedFor {
		return
	}

	l.stopTimer()
	l.slide = l.clock.NewTimer(s.Interval)
	l.armedFor = key
}

func (l *runLoop) stopTimer() {
	if l.slide != nil {
		l.slide.Stop()
		l.slide = nil
	}
}
