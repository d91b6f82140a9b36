package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/choreo"
	"github.com/Seann-Moser/useless/pkg/pwm"
	"github.com/Seann-Moser/useless/pkg/sequencer"
)

type fakeTrigger struct{ active atomic.Bool }

func (f *fakeTrigger) Active() (bool, error) { return f.active.Load(), nil }

type fakeIndicator struct {
	mu     sync.Mutex
	states []bool
}

func (f *fakeIndicator) Set(on bool) error {
	f.mu.Lock()
	f.states = append(f.states, on)
	f.mu.Unlock()
	return nil
}

// blockingRunner holds every run until release is closed.
type blockingRunner struct {
	started chan int
	release chan struct{}
	running atomic.Int64
}

func (b *blockingRunner) Run(_ context.Context, c choreo.Choreography) error {
	b.running.Store(int64(c.ID))
	b.started <- c.ID
	<-b.release
	b.running.Store(0)
	return nil
}

func (b *blockingRunner) Status() sequencer.Status {
	id := int(b.running.Load())
	if id == 0 {
		return sequencer.Status{}
	}
	return sequencer.Status{Phase: sequencer.Running, Choreography: id}
}

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
}

type command struct {
	Channel pwm.Channel
	Pulse   pwm.PulseWidth
}

type recorder struct {
	mu   sync.Mutex
	cmds []command
}

func (r *recorder) SetServoPulse(ch pwm.Channel, p pwm.PulseWidth) error {
	r.mu.Lock()
	r.cmds = append(r.cmds, command{ch, p})
	r.mu.Unlock()
	return nil
}

func startDispatcher(t *testing.T, d *Dispatcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestObserveDebounce(t *testing.T) {
	d := New(&fakeTrigger{}, nil, choreo.Builtin(), Config{StableFor: 50 * time.Millisecond})
	t0 := time.Unix(0, 0)
	at := func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

	// a 20ms glitch never counts
	assert.False(t, d.observe(true, at(0)))
	assert.False(t, d.observe(true, at(20)))
	assert.False(t, d.observe(false, at(30)))

	assert.False(t, d.observe(true, at(100)))
	assert.False(t, d.observe(true, at(140)))
	assert.True(t, d.observe(true, at(150)))
	// holding the button does not fire again
	assert.False(t, d.observe(true, at(400)))

	assert.False(t, d.observe(false, at(500)))
	assert.False(t, d.observe(true, at(600)))
	assert.True(t, d.observe(true, at(650)))
}

// classicSeed returns the smallest seed whose first draw over the stock
// catalog is choreography 1.
func classicSeed(t *testing.T) uint64 {
	t.Helper()
	n := choreo.Builtin().Len()
	for seed := uint64(0); seed < 10_000; seed++ {
		if NewRandomSelector(seed).Pick(n) == 1 {
			return seed
		}
	}
	t.Fatal("no seed draws choreography 1")
	return 0
}

func TestEndToEndSelectsClassic(t *testing.T) {
	rec := &recorder{}
	clock := &fakeClock{}
	engine := sequencer.New(rec, actuator.Default(), sequencer.WithClock(clock))
	trig := &fakeTrigger{}
	ind := &fakeIndicator{}
	results := make(chan Result, 1)
	d := New(trig, engine, choreo.Builtin(), Config{PollInterval: time.Millisecond},
		WithSelector(NewRandomSelector(classicSeed(t))),
		WithIndicator(ind),
		WithResultHook(func(r Result) { results <- r }),
	)
	stop := startDispatcher(t, d)

	trig.active.Store(true)
	var res Result
	select {
	case res = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("no run started")
	}
	stop()

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Choreography)
	assert.Equal(t, "button", res.Source)
	assert.Equal(t, []command{{15, 1100}, {14, 1700}, {14, 2450}, {15, 2400}}, rec.cmds)
	assert.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond, time.Second, time.Second}, clock.slept)
	assert.Equal(t, sequencer.Idle, engine.Status().Phase)
	assert.Equal(t, []bool{true, false}, ind.states)
}

func TestFireWhileBusyIsDropped(t *testing.T) {
	runner := &blockingRunner{started: make(chan int, 1), release: make(chan struct{})}
	picks := 0
	d := New(&fakeTrigger{}, runner, choreo.Builtin(), Config{},
		WithSelector(SelectorFunc(func(int) int { picks++; return 7 })))
	stop := startDispatcher(t, d)

	require.NoError(t, d.Fire("test"))
	assert.Equal(t, 7, <-runner.started)
	assert.True(t, d.Busy())

	err := d.Fire("test")
	var are *sequencer.AlreadyRunningError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, 7, are.Active)
	assert.Equal(t, 1, picks, "dropped trigger must not select a choreography")

	close(runner.release)
	require.Eventually(t, func() bool { return !d.Busy() }, time.Second, time.Millisecond)
	stop()

	assert.ErrorIs(t, d.Fire("test"), ErrDraining)
}

func TestCooldown(t *testing.T) {
	results := make(chan Result, 2)
	engine := sequencer.New(&recorder{}, actuator.Default(), sequencer.WithClock(&fakeClock{}))
	d := New(&fakeTrigger{}, engine, choreo.Builtin(), Config{Cooldown: time.Hour},
		WithResultHook(func(r Result) { results <- r }))
	stop := startDispatcher(t, d)
	defer stop()

	require.NoError(t, d.Fire("test"))
	require.NoError(t, (<-results).Err)
	require.Eventually(t, func() bool { return !d.Busy() }, time.Second, time.Millisecond)

	assert.ErrorIs(t, d.Fire("test"), ErrCoolingDown)
	assert.False(t, d.Busy())
}

func TestRandomSelectorIsSeeded(t *testing.T) {
	a := NewRandomSelector(42)
	b := NewRandomSelector(42)
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		pa, pb := a.Pick(50), b.Pick(50)
		require.Equal(t, pa, pb)
		require.GreaterOrEqual(t, pa, 1)
		require.LessOrEqual(t, pa, 50)
		seen[pa] = true
	}
	assert.Greater(t, len(seen), 40)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	d := New(&fakeTrigger{}, nil, choreo.Builtin(), Config{Schedule: []string{"not a cron"}})

	assert.Error(t, d.Run(context.Background()))
}

func TestScheduleFires(t *testing.T) {
	results := make(chan Result, 1)
	engine := sequencer.New(&recorder{}, actuator.Default(), sequencer.WithClock(&fakeClock{}))
	d := New(&fakeTrigger{}, engine, choreo.Builtin(), Config{Schedule: []string{"@every 1s"}},
		WithResultHook(func(r Result) {
			select {
			case results <- r:
			default:
			}
		}))
	stop := startDispatcher(t, d)
	defer stop()

	select {
	case r := <-results:
		assert.Equal(t, "schedule:@every 1s", r.Source)
		assert.NoError(t, r.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule never fired")
	}
}
