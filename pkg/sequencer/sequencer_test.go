package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/choreo"
	"github.com/Seann-Moser/useless/pkg/io"
	"github.com/Seann-Moser/useless/pkg/pwm"
)

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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type command struct {
	Channel pwm.Channel
	Pulse   pwm.PulseWidth
}

// recorder is a PulseSetter that logs every command and can be told to fail
// or block on a given call.
type recorder struct {
	mu     sync.Mutex
	cmds   []command
	onCall func(n int, c command) error
}

func (r *recorder) SetServoPulse(ch pwm.Channel, p pwm.PulseWidth) error {
	r.mu.Lock()
	n := len(r.cmds)
	c := command{ch, p}
	r.cmds = append(r.cmds, c)
	hook := r.onCall
	r.mu.Unlock()
	if hook != nil {
		return hook(n, c)
	}
	return nil
}

func (r *recorder) commands() []command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func classic(t *testing.T) choreo.Choreography {
	t.Helper()
	c, err := choreo.Builtin().Get(1)
	require.NoError(t, err)
	return c
}

func TestRunClassic(t *testing.T) {
	rec := &recorder{}
	clock := &fakeClock{}
	e := New(rec, actuator.Default(), WithClock(clock))

	require.NoError(t, e.Run(context.Background(), classic(t)))

	assert.Equal(t, []command{{15, 1100}, {14, 1700}, {14, 2450}, {15, 2400}}, rec.commands())
	assert.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond, time.Second, time.Second}, clock.slept)
	assert.Equal(t, Status{Phase: Idle}, e.Status())
}

func TestHoldMeasuredFromIssue(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{onCall: func(int, command) error {
		clock.Advance(30 * time.Millisecond)
		return nil
	}}
	e := New(rec, actuator.Default(), WithClock(clock))
	c := choreo.Choreography{ID: 1, Steps: []choreo.Step{
		choreo.Move{Actuator: actuator.Lid, Pulse: 1100, Hold: 100 * time.Millisecond},
		choreo.Move{Actuator: actuator.Lid, Pulse: 2400, Hold: 10 * time.Millisecond},
	}}

	require.NoError(t, e.Run(context.Background(), c))
	assert.Equal(t, []time.Duration{70 * time.Millisecond}, clock.slept)
}

func TestRunWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{onCall: func(n int, _ command) error {
		if n == 0 {
			close(started)
			<-release
		}
		return nil
	}}
	e := New(rec, actuator.Default(), WithClock(&fakeClock{}))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background(), classic(t)) }()
	<-started

	other, err := choreo.Builtin().Get(2)
	require.NoError(t, err)
	err = e.Run(context.Background(), other)
	var are *AlreadyRunningError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, 1, are.Active)
	assert.ErrorAs(t, e.Park(), &are)

	st := e.Status()
	assert.Equal(t, Running, st.Phase)
	assert.Equal(t, 1, st.Choreography)
	assert.NotEmpty(t, st.RunID)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, rec.commands(), 4, "rejected run must not issue commands")
	assert.Equal(t, Idle, e.Status().Phase)
}

func TestAbortParksActuators(t *testing.T) {
	nack := errors.New("nack")
	rec := &recorder{onCall: func(n int, _ command) error {
		if n == 2 {
			return nack
		}
		return nil
	}}
	e := New(rec, actuator.Default(), WithClock(&fakeClock{}))

	err := e.Run(context.Background(), classic(t))
	var aerr *SequenceAbortedError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 1, aerr.Choreography)
	assert.Equal(t, 2, aerr.Offset)
	assert.ErrorIs(t, err, nack)
	assert.NoError(t, aerr.Recovery)

	assert.Equal(t, []command{
		{15, 1100}, {14, 1700}, {14, 2450},
		{14, 2450}, {13, 2450}, {15, 2400},
	}, rec.commands())
	assert.Equal(t, Idle, e.Status().Phase)
}

func TestAbortRecoveryIsBestEffort(t *testing.T) {
	rec := &recorder{onCall: func(n int, c command) error {
		if n == 1 || c.Channel == 13 {
			return errors.New("bus down")
		}
		return nil
	}}
	e := New(rec, actuator.Default(), WithClock(&fakeClock{}))

	err := e.Run(context.Background(), classic(t))
	var aerr *SequenceAbortedError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 1, aerr.Offset)
	assert.Error(t, aerr.Recovery)

	cmds := rec.commands()
	assert.Equal(t, []command{{14, 2450}, {13, 2450}, {15, 2400}}, cmds[len(cmds)-3:])
}

func TestEmergencyStop(t *testing.T) {
	var e *Engine
	rec := &recorder{onCall: func(n int, _ command) error {
		if n == 1 {
			assert.True(t, e.EmergencyStop())
		}
		return nil
	}}
	e = New(rec, actuator.Default(), WithClock(&fakeClock{}))
	assert.False(t, e.EmergencyStop(), "nothing to stop while idle")

	err := e.Run(context.Background(), classic(t))
	var aerr *SequenceAbortedError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, ErrEmergencyStop)
	assert.Equal(t, 2, aerr.Offset)
	assert.Equal(t, []command{{15, 1100}, {14, 1700}, {14, 2450}, {13, 2450}, {15, 2400}}, rec.commands())

	// the stop request does not leak into the next run
	rec.onCall = nil
	require.NoError(t, e.Run(context.Background(), classic(t)))
}

func TestRunAgainstDriver(t *testing.T) {
	bus := io.NewSimBus(0x40)
	m := actuator.Default()
	d := pwm.New(bus, 0x40, pwm.WithLimits(m), pwm.WithSleep(func(time.Duration) {}))
	require.NoError(t, d.Initialize())
	require.NoError(t, d.SetFrequency(pwm.ServoFrequency))
	e := New(d, m, WithClock(&fakeClock{}))

	require.NoError(t, e.Run(context.Background(), classic(t)))

	off := func(ch pwm.Channel) uint16 {
		base := uint8(pwm.RegLed0OnL + 4*int(ch))
		return uint16(bus.Register(0x40, base+2)) | uint16(bus.Register(0x40, base+3))<<8
	}
	assert.Equal(t, uint16(491), off(15))
	assert.Equal(t, uint16(501), off(14))
}

func TestRunAbortsOnHardwareError(t *testing.T) {
	bus := io.NewSimBus(0x40)
	m := actuator.Default()
	d := pwm.New(bus, 0x40, pwm.WithLimits(m), pwm.WithSleep(func(time.Duration) {}))
	require.NoError(t, d.Initialize())
	require.NoError(t, d.SetFrequency(pwm.ServoFrequency))
	armOff := uint8(pwm.RegLed0OnL + 4*14 + 2)
	failed := false
	bus.SetFault(func(w io.Write) error {
		if w.Reg == armOff && !failed {
			failed = true
			return errors.New("nack")
		}
		return nil
	})
	e := New(d, m, WithClock(&fakeClock{}))

	err := e.Run(context.Background(), classic(t))
	var aerr *SequenceAbortedError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 1, aerr.Offset)
	assert.True(t, io.IsHardware(err))
	assert.NoError(t, aerr.Recovery)
	assert.Equal(t, Idle, e.Status().Phase)
}
