package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct{ a, b int }

func (p *pair) Len() int { return p.a }

// counterFetch returns successive pairs and fails whenever fail is set.
type counterFetch struct {
	n    atomic.Int64
	fail atomic.Bool
}

func (f *counterFetch) fetch(context.Context) (*pair, error) {
	if f.fail.Load() {
		return nil, errors.New("upstream 502")
	}
	n := int(f.n.Add(1))
	return &pair{a: n, b: n}, nil
}

type recordingObserver struct {
	mu      sync.Mutex
	cycles  int
	errs    int
	streaks []int
	sizes   []int
}

func (o *recordingObserver) ObserveRefresh(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cycles++
	if err != nil {
		o.errs++
	}
}

func (o *recordingObserver) ObserveFailureStreak(_ string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streaks = append(o.streaks, n)
}

func (o *recordingObserver) ObserveSize(_ string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sizes = append(o.sizes, n)
}

func TestInitPublishesFirstVersion(t *testing.T) {
	f := &counterFetch{}
	obs := &recordingObserver{}
	c := New("subway", f.fetch, WithObserver(obs))

	assert.Equal(t, Uninitialized, c.State())
	assert.Nil(t, c.Current())

	require.NoError(t, c.Init(context.Background()))
	assert.Equal(t, Ready, c.State())
	require.NotNil(t, c.Current())
	assert.Equal(t, 1, c.Current().Value.a)
	assert.Equal(t, []int{1}, obs.sizes)
}

func TestInitFailure(t *testing.T) {
	f := &counterFetch{}
	f.fail.Store(true)
	c := New("lirr", f.fetch)

	err := c.Init(context.Background())
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "lirr", fe.System)
	assert.Equal(t, Uninitialized, c.State())
	assert.Nil(t, c.Current())
	assert.False(t, c.ForceRefresh(context.Background()).Retained, "nothing to retain yet")
}

func TestFailedRefreshRetainsPreviousVersion(t *testing.T) {
	f := &counterFetch{}
	c := New("mnr", f.fetch)
	require.NoError(t, c.Init(context.Background()))
	before := c.Current()

	f.fail.Store(true)
	res := c.ForceRefresh(context.Background())
	require.Error(t, res.Err)
	assert.True(t, res.Retained)
	assert.False(t, res.Published)
	assert.Same(t, before, c.Current())
	assert.Equal(t, Ready, c.State())

	h := c.Health()
	assert.Equal(t, 1, h.ConsecutiveFailures)
	assert.Contains(t, h.LastError, "upstream 502")
}

func TestDegradedAfterConsecutiveFailures(t *testing.T) {
	f := &counterFetch{}
	obs := &recordingObserver{}
	c := New("subway", f.fetch, WithObserver(obs))
	require.NoError(t, c.Init(context.Background()))

	f.fail.Store(true)
	for i := 1; i < DegradedThreshold; i++ {
		c.ForceRefresh(context.Background())
		assert.False(t, c.Health().Degraded, "after %d failures", i)
	}
	c.ForceRefresh(context.Background())
	h := c.Health()
	assert.True(t, h.Degraded)
	assert.Equal(t, DegradedThreshold, h.ConsecutiveFailures)

	f.fail.Store(false)
	res := c.ForceRefresh(context.Background())
	require.NoError(t, res.Err)
	assert.True(t, res.Published)
	h = c.Health()
	assert.False(t, h.Degraded)
	assert.Zero(t, h.ConsecutiveFailures)
	assert.Empty(t, h.LastError)

	assert.Equal(t, []int{0, 1, 2, 3, 0}, obs.streaks)
	assert.Equal(t, 3, obs.errs)
}

func TestRefreshCoalescesWhileRunning(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	c := New("subway", func(context.Context) (*pair, error) {
		n := int(calls.Add(1))
		<-release
		return &pair{a: n, b: n}, nil
	})

	first := make(chan Result, 1)
	go func() { first <- c.ForceRefresh(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	res := c.Refresh(context.Background())
	assert.True(t, res.Coalesced)
	assert.NoError(t, res.Err)

	joined := make(chan Result, 1)
	go func() { joined <- c.ForceRefresh(context.Background()) }()

	// Give the joiner time to attach before releasing the cycle.
	time.Sleep(20 * time.Millisecond)
	close(release)

	r1, r2 := <-first, <-joined
	assert.True(t, r1.Published)
	assert.Equal(t, r1.Cycle, r2.Cycle, "ForceRefresh joins the running cycle")
	assert.Equal(t, int64(1), calls.Load())
}

func TestReadersSeeWholeVersions(t *testing.T) {
	f := &counterFetch{}
	c := New("subway", f.fetch)
	require.NoError(t, c.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var torn atomic.Int64
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for ctx.Err() == nil {
				v := c.Current()
				if v.Value.a != v.Value.b || v.Value.a < last {
					torn.Add(1)
				}
				last = v.Value.a
			}
		}()
	}
	for range 200 {
		c.ForceRefresh(context.Background())
	}
	cancel()
	wg.Wait()

	assert.Zero(t, torn.Load())
	assert.Equal(t, 201, c.Current().Value.a)
}

func TestStartStop(t *testing.T) {
	f := &counterFetch{}
	c := New("subway", f.fetch, WithInterval(5*time.Millisecond))
	require.NoError(t, c.Init(context.Background()))

	c.Start(context.Background())
	c.Start(context.Background())
	require.Eventually(t, func() bool { return f.n.Load() >= 4 }, 2*time.Second, time.Millisecond)
	c.Stop()
	// A cycle abandoned by Stop may still finish.
	time.Sleep(10 * time.Millisecond)

	stopped := f.n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, f.n.Load())
	c.Stop()
}

func TestStaticCoordinatorHasNoLoop(t *testing.T) {
	f := &counterFetch{}
	c := New("mnr", f.fetch)
	require.NoError(t, c.Init(context.Background()))
	assert.Zero(t, c.Interval())

	c.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	c.Stop()
	assert.Equal(t, int64(1), f.n.Load())
}

func TestFetchPanicIsAFailure(t *testing.T) {
	c := New("lirr", func(context.Context) (*pair, error) { panic("bad feed") })
	res := c.ForceRefresh(context.Background())
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "bad feed")
	assert.Equal(t, 1, c.Health().ConsecutiveFailures)
}

func TestForceRefreshCancelledWaitKeepsCycle(t *testing.T) {
	release := make(chan struct{})
	c := New("subway", func(ctx context.Context) (*pair, error) {
		<-release
		return &pair{a: 7, b: 7}, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := c.ForceRefresh(ctx)
	assert.ErrorIs(t, res.Err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return c.Current() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, 7, c.Current().Value.a)
}
