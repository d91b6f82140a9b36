package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/choreo"
	"github.com/Seann-Moser/useless/pkg/pwm"
)

const tracerName = "github.com/Seann-Moser/useless/pkg/sequencer"

type Phase int

const (
	Idle Phase = iota
	Running
)

func (p Phase) String() string {
	if p == Running {
		return "running"
	}
	return "idle"
}

// Status is a snapshot of the engine. Choreography and Offset are only
// meaningful while Running.
type Status struct {
	Phase        Phase
	Choreography int
	Offset       int
	RunID        string
}

var ErrEmergencyStop = errors.New("emergency stop")

// AlreadyRunningError is returned when a run is requested while another is active.
type AlreadyRunningError struct {
	Active int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("choreography %d already running", e.Active)
}

// SequenceAbortedError reports a run cut short at keyframe Offset. Recovery
// holds any failure while parking the actuators afterwards.
type SequenceAbortedError struct {
	Choreography int
	Offset       int
	Err          error
	Recovery     error
}

func (e *SequenceAbortedError) Error() string {
	msg := fmt.Sprintf("choreography %d aborted at keyframe %d: %v", e.Choreography, e.Offset, e.Err)
	if e.Recovery != nil {
		msg += fmt.Sprintf(" (recovery: %v)", e.Recovery)
	}
	return msg
}

func (e *SequenceAbortedError) Unwrap() error { return e.Err }

// PulseSetter is the only driver operation the engine needs.
type PulseSetter interface {
	SetServoPulse(ch pwm.Channel, pulse pwm.PulseWidth) error
}

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Engine plays one choreography at a time against the driver. Runs are
// blocking and are never preempted by another run.
type Engine struct {
	driver    PulseSetter
	actuators *actuator.Map
	clock     Clock
	logger    *slog.Logger
	tracer    trace.Tracer

	mu     sync.Mutex
	status Status
	estop  bool
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func New(driver PulseSetter, actuators *actuator.Map, opts ...Option) *Engine {
	e := &Engine{
		driver:    driver,
		actuators: actuators,
		clock:     realClock{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) acquire(id int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.Phase == Running {
		return "", &AlreadyRunningError{Active: e.status.Choreography}
	}
	runID := ulid.Make().String()
	e.status = Status{Phase: Running, Choreography: id, RunID: runID}
	e.estop = false
	return runID, nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.status = Status{Phase: Idle}
	e.estop = false
	e.mu.Unlock()
}

// advance records the offset about to execute and reports whether an
// emergency stop is pending.
func (e *Engine) advance(offset int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Offset = offset
	return e.estop
}

// EmergencyStop asks the active run to abort and park at its next keyframe
// boundary. It reports false when nothing is running.
func (e *Engine) EmergencyStop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.Phase != Running {
		return false
	}
	e.estop = true
	return true
}

// Run plays c to completion. Each keyframe's hold is measured from the moment
// its command was issued. A failed command aborts the run and parks every
// actuator at rest before returning a *SequenceAbortedError. ctx carries trace
// context only; a run cannot be cancelled once started.
func (e *Engine) Run(ctx context.Context, c choreo.Choreography) error {
	kfs, err := c.Keyframes()
	if err != nil {
		return err
	}
	runID, err := e.acquire(c.ID)
	if err != nil {
		return err
	}
	defer e.release()

	_, span := e.tracer.Start(ctx, "choreography.run", trace.WithAttributes(
		attribute.Int("choreography.id", c.ID),
		attribute.String("choreography.name", c.Name),
		attribute.Int("choreography.keyframes", len(kfs)),
		attribute.String("run.id", runID),
	))
	defer span.End()

	log := e.logger.With("run", runID, "choreography", c.ID)
	log.Info("choreography started", "name", c.Name, "keyframes", len(kfs))
	start := e.clock.Now()

	for i, k := range kfs {
		if e.advance(i) {
			return e.abort(span, log, c.ID, i, ErrEmergencyStop)
		}
		issued := e.clock.Now()
		if k.Actuator != actuator.None {
			if err := e.driver.SetServoPulse(e.actuators.Channel(k.Actuator), k.Pulse); err != nil {
				return e.abort(span, log, c.ID, i, err)
			}
		}
		if rem := k.Hold - e.clock.Now().Sub(issued); rem > 0 {
			e.clock.Sleep(rem)
		}
	}

	span.SetStatus(codes.Ok, "")
	log.Info("choreography complete", "elapsed", e.clock.Now().Sub(start))
	return nil
}

func (e *Engine) abort(span trace.Span, log *slog.Logger, id, offset int, cause error) error {
	aerr := &SequenceAbortedError{Choreography: id, Offset: offset, Err: cause}
	aerr.Recovery = e.park()
	span.RecordError(aerr)
	span.SetStatus(codes.Error, aerr.Error())
	log.Error("choreography aborted", "offset", offset, "error", cause, "recovery_error", aerr.Recovery)
	return aerr
}

// park commands every actuator to rest, arm first so the lid never closes on
// it. Every actuator is attempted even if an earlier one fails.
func (e *Engine) park() error {
	var errs []error
	for _, a := range actuator.All {
		if err := e.driver.SetServoPulse(e.actuators.Channel(a), e.actuators.Rest(a)); err != nil {
			errs = append(errs, fmt.Errorf("park %s: %w", a, err))
		}
	}
	return errors.Join(errs...)
}

// Park drives all actuators to rest. It is refused while a run is active.
func (e *Engine) Park() error {
	if _, err := e.acquire(0); err != nil {
		return err
	}
	defer e.release()
	return e.park()
}
