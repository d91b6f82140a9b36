package controller

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/Seann-Moser/useless/pkg/choreo"
	"github.com/Seann-Moser/useless/pkg/sequencer"
)

var (
	ErrCoolingDown = errors.New("trigger inside cooldown")
	ErrDraining    = errors.New("dispatcher shutting down")
)

// Trigger is the machine's momentary input.
type Trigger interface {
	Active() (bool, error)
}

// Indicator shows whether a choreography is running.
type Indicator interface {
	Set(on bool) error
}

// Runner plays choreographies. *sequencer.Engine is the production Runner.
type Runner interface {
	Run(ctx context.Context, c choreo.Choreography) error
	Status() sequencer.Status
}

// Selector picks a choreography index in 1..n.
type Selector interface {
	Pick(n int) int
}

type SelectorFunc func(n int) int

func (f SelectorFunc) Pick(n int) int { return f(n) }

// RandomSelector draws uniformly from a seeded PCG source, so a fixed seed
// reproduces the same sequence of choreographies.
type RandomSelector struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRandomSelector(seed uint64) *RandomSelector {
	return &RandomSelector{r: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

func (s *RandomSelector) Pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n) + 1
}

type Config struct {
	// PollInterval is how often the trigger is sampled.
	PollInterval time.Duration `yaml:"poll_interval"`
	// StableFor is how long the trigger must read active before it counts.
	StableFor time.Duration `yaml:"stable_for"`
	// Cooldown is the minimum spacing between accepted triggers; zero disables it.
	Cooldown time.Duration `yaml:"cooldown"`
	// Schedule holds cron specs that fire synthetic triggers.
	Schedule []string `yaml:"schedule"`
}

// Result is reported after every run the dispatcher starts.
type Result struct {
	Choreography int
	Source       string
	Err          error
}

// Dispatcher turns trigger presses into choreography runs. At most one run is
// active or pending at any time; presses while busy are dropped.
type Dispatcher struct {
	trigger   Trigger
	engine    Runner
	catalog   *choreo.Catalog
	selector  Selector
	indicator Indicator
	limiter   *rate.Limiter
	cfg       Config
	logger    *slog.Logger
	onResult  func(Result)

	busy     atomic.Bool
	draining atomic.Bool
	requests chan request

	// debounce state, owned by the poll loop
	high  bool
	since time.Time
	fired bool
}

type request struct {
	id     int
	source string
}

type Option func(*Dispatcher)

func WithIndicator(i Indicator) Option {
	return func(d *Dispatcher) { d.indicator = i }
}

func WithSelector(s Selector) Option {
	return func(d *Dispatcher) { d.selector = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithResultHook is called from the run goroutine after each run.
func WithResultHook(f func(Result)) Option {
	return func(d *Dispatcher) { d.onResult = f }
}

func New(trigger Trigger, engine Runner, catalog *choreo.Catalog, cfg Config, opts ...Option) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	limit := rate.Inf
	if cfg.Cooldown > 0 {
		limit = rate.Every(cfg.Cooldown)
	}
	d := &Dispatcher{
		trigger:  trigger,
		engine:   engine,
		catalog:  catalog,
		selector: NewRandomSelector(uint64(time.Now().UnixNano())),
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		logger:   slog.Default(),
		requests: make(chan request, 1),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Busy reports whether a run is active or about to start.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Fire requests a run of a randomly selected choreography. It never queues
// behind an active run: while busy it returns *sequencer.AlreadyRunningError.
func (d *Dispatcher) Fire(source string) error {
	if d.draining.Load() {
		return ErrDraining
	}
	if !d.busy.CompareAndSwap(false, true) {
		err := &sequencer.AlreadyRunningError{Active: d.engine.Status().Choreography}
		d.logger.Info("trigger ignored", "source", source, "reason", err)
		return err
	}
	if !d.limiter.Allow() {
		d.busy.Store(false)
		d.logger.Info("trigger ignored", "source", source, "reason", ErrCoolingDown)
		return ErrCoolingDown
	}
	id := d.selector.Pick(d.catalog.Len())
	d.logger.Debug("trigger accepted", "source", source, "choreography", id)
	d.requests <- request{id: id, source: source}
	return nil
}

// observe feeds one trigger sample into the debounce filter and reports a
// confirmed press. A press fires once; the input must go inactive to re-arm.
func (d *Dispatcher) observe(active bool, now time.Time) bool {
	if !active {
		d.high = false
		d.fired = false
		return false
	}
	if !d.high {
		d.high = true
		d.since = now
	}
	if d.fired || now.Sub(d.since) < d.cfg.StableFor {
		return false
	}
	d.fired = true
	return true
}

// Run polls the trigger until ctx is done, then waits for an active run to
// finish. Runs are not interrupted by cancellation.
func (d *Dispatcher) Run(ctx context.Context) error {
	var sched *cron.Cron
	if len(d.cfg.Schedule) > 0 {
		var err error
		if sched, err = d.schedule(d.cfg.Schedule); err != nil {
			return err
		}
		sched.Start()
	}

	wg := sync.WaitGroup{}
	wg.Go(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-d.requests:
				d.play(ctx, req)
			}
		}
	})

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	d.logger.Info("dispatcher started", "choreographies", d.catalog.Len(), "poll", d.cfg.PollInterval)
	for {
		select {
		case <-ctx.Done():
			d.draining.Store(true)
			if sched != nil {
				<-sched.Stop().Done()
			}
			wg.Wait()
			d.logger.Info("dispatcher stopped")
			return nil
		case now := <-ticker.C:
			active, err := d.trigger.Active()
			if err != nil {
				d.logger.Warn("trigger read failed", "error", err)
				continue
			}
			if d.observe(active, now) {
				_ = d.Fire("button")
			}
		}
	}
}

func (d *Dispatcher) play(ctx context.Context, req request) {
	d.setIndicator(true)
	c, err := d.catalog.Get(req.id)
	if err == nil {
		err = d.engine.Run(ctx, c)
	}
	d.setIndicator(false)
	d.busy.Store(false)

	if err != nil {
		d.logger.Error("choreography failed", "choreography", req.id, "source", req.source, "error", err)
	}
	if d.onResult != nil {
		d.onResult(Result{Choreography: req.id, Source: req.source, Err: err})
	}
}

func (d *Dispatcher) setIndicator(on bool) {
	if d.indicator == nil {
		return
	}
	if err := d.indicator.Set(on); err != nil {
		d.logger.Warn("indicator update failed", "error", err)
	}
}
