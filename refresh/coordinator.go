package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DegradedThreshold is the number of consecutive failed cycles after which a
// coordinator reports itself degraded.
const DegradedThreshold = 3

// FetchFunc produces a brand-new value for one refresh cycle.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Version is one published value. Versions are never modified after Store.
type Version[T any] struct {
	Value T
	Built time.Time
	Cycle uuid.UUID
}

// Result describes the outcome of a Refresh or ForceRefresh call.
type Result struct {
	Cycle    uuid.UUID
	Duration time.Duration
	// Published is true when the cycle swapped in a new version.
	Published bool
	// Coalesced is true when Refresh found a cycle already running and did nothing.
	Coalesced bool
	// Retained is true when the cycle failed and an older version is still served.
	Retained bool
	Err      error
}

// Coordinator owns the current version of one value, typically a station index,
// and replaces it wholesale on every successful cycle. Readers call Current and
// use what they get for the rest of their operation.
type Coordinator[T any] struct {
	name  string
	fetch FetchFunc[T]
	opts  options

	current  atomic.Pointer[Version[T]]
	inFlight atomic.Bool
	group    singleflight.Group

	mu          sync.Mutex
	failures    int
	lastSuccess time.Time
	lastAttempt time.Time
	lastErr     error

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a coordinator in the Uninitialized state. Nothing is fetched until
// Init or a refresh is called.
func New[T any](name string, fetch FetchFunc[T], opts ...Option) *Coordinator[T] {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Coordinator[T]{
		name:  name,
		fetch: fetch,
		opts:  o,
	}
}

// Name returns the name the coordinator logs and reports under.
func (c *Coordinator[T]) Name() string { return c.name }

// Interval returns the background refresh period; zero means static.
func (c *Coordinator[T]) Interval() time.Duration { return c.opts.interval }

// Current returns the published version, or nil before the first success.
func (c *Coordinator[T]) Current() *Version[T] { return c.current.Load() }

// Init runs the first cycle synchronously. A coordinator that fails Init has
// nothing to serve and the caller should abort startup.
func (c *Coordinator[T]) Init(ctx context.Context) error {
	res := c.ForceRefresh(ctx)
	if res.Err != nil {
		return fmt.Errorf("initial build of %s: %w", c.name, res.Err)
	}
	return nil
}

// Refresh starts a cycle unless one is already running, in which case it
// returns immediately with Coalesced set. Two callers racing past the check
// share a single cycle.
func (c *Coordinator[T]) Refresh(ctx context.Context) Result {
	if c.inFlight.Load() {
		return Result{Coalesced: true}
	}
	return c.ForceRefresh(ctx)
}

// ForceRefresh waits for a cycle to complete, joining the running one if there
// is one. Cancelling ctx stops the wait but not the cycle.
func (c *Coordinator[T]) ForceRefresh(ctx context.Context) Result {
	ch := c.group.DoChan(c.name, func() (any, error) {
		c.inFlight.Store(true)
		defer c.inFlight.Store(false)
		return c.cycle(ctx), nil
	})
	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{Err: ctx.Err(), Retained: c.current.Load() != nil}
	}
}

func (c *Coordinator[T]) cycle(parent context.Context) Result {
	id := uuid.New()
	log := c.opts.logger.With("system", c.name, "cycle", id.String())
	start := c.opts.now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.opts.timeout)
	defer cancel()

	value, err := c.safeFetch(ctx)
	dur := c.opts.now().Sub(start)
	c.opts.observer.ObserveRefresh(c.name, dur, err)

	if err != nil {
		ferr := &FetchError{System: c.name, Err: err}
		c.mu.Lock()
		c.failures++
		n := c.failures
		c.lastAttempt = start
		c.lastErr = ferr
		c.mu.Unlock()
		c.opts.observer.ObserveFailureStreak(c.name, n)

		retained := c.current.Load() != nil
		attrs := []any{"error", err, "duration", dur, "consecutive_failures", n, "retained", retained}
		if n >= DegradedThreshold {
			log.Error("refresh failing repeatedly, serving previous data", attrs...)
		} else {
			log.Warn("refresh failed", attrs...)
		}
		return Result{Cycle: id, Duration: dur, Retained: retained, Err: ferr}
	}

	c.current.Store(&Version[T]{Value: value, Built: c.opts.now(), Cycle: id})

	c.mu.Lock()
	c.failures = 0
	c.lastAttempt = start
	c.lastSuccess = start
	c.lastErr = nil
	c.mu.Unlock()
	c.opts.observer.ObserveFailureStreak(c.name, 0)

	size := -1
	if s, ok := any(value).(interface{ Len() int }); ok {
		size = s.Len()
		c.opts.observer.ObserveSize(c.name, size)
	}
	log.Info("refresh published", "duration", dur, "size", size)
	return Result{Cycle: id, Duration: dur, Published: true}
}

func (c *Coordinator[T]) safeFetch(ctx context.Context) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return c.fetch(ctx)
}

// Start launches the background loop. A coordinator with a zero interval has
// static data and Start does nothing. Start after Stop restarts the loop.
func (c *Coordinator[T]) Start(ctx context.Context) {
	if c.opts.interval <= 0 {
		return
	}
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.loop(ctx, c.done)
}

func (c *Coordinator[T]) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Stop ends the background loop and waits for it to exit. A cycle still running
// is abandoned; the published version stays valid.
func (c *Coordinator[T]) Stop() {
	c.loopMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.loopMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
