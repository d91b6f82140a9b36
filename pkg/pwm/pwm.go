// Package pwm drives a 16-channel, 12-bit PWM expander over a two-wire bus and
// converts servo pulse widths into duty-cycle ticks.
package pwm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Seann-Moser/useless/pkg/io"
)

// Register map.
const (
	RegMode1    = 0x00
	RegPrescale = 0xFE
	RegLed0OnL  = 0x06
)

// MODE1 bits.
const (
	ModeRestart = 0x80
	ModeSleep   = 0x10
)

const (
	// OscillatorHz is the expander's internal oscillator as calibrated on this board.
	OscillatorHz = 24_500_000
	// Resolution is the number of ticks in one PWM period.
	Resolution = 4096
	// ServoFrequency is the only carrier frequency servo pulses are valid at.
	ServoFrequency = 50
	// Channels is the number of outputs on the expander.
	Channels = 16
	// SettleDelay is how long the oscillator needs after leaving sleep.
	SettleDelay = 5 * time.Millisecond
)

// Channel names one physical PWM output (0-15).
type Channel uint8

// PulseWidth is a servo command in microseconds.
type PulseWidth uint16

var (
	ErrNotCalibrated     = errors.New("pwm frequency not set")
	ErrAlreadyCalibrated = errors.New("pwm frequency already set")
	ErrInvalidChannel    = errors.New("invalid pwm channel")
	ErrInvalidFrequency  = errors.New("invalid pwm frequency")
)

// InvalidPulseError rejects a pulse outside a channel's safe travel. Nothing
// is written to the bus when it is returned.
type InvalidPulseError struct {
	Channel Channel
	Pulse   PulseWidth
	Min     PulseWidth
	Max     PulseWidth
}

func (e *InvalidPulseError) Error() string {
	return fmt.Sprintf("pulse %dus on channel %d outside [%d,%d]us", e.Pulse, e.Channel, e.Min, e.Max)
}

// Limits supplies the configured travel of each bound channel.
type Limits interface {
	Range(ch Channel) (min, max PulseWidth, ok bool)
}

// State is the calibration state of the driver.
type State struct {
	Frequency int
	Prescale  uint8
	Awake     bool
}

// Driver owns the expander's register file. It is calibrated once with
// SetFrequency and is read-only afterwards.
type Driver struct {
	bus    io.BusPort
	addr   uint8
	limits Limits
	sleep  func(time.Duration)
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

type Option func(*Driver)

// WithLimits makes SetServoPulse reject pulses outside each channel's range.
func WithLimits(l Limits) Option {
	return func(d *Driver) { d.limits = l }
}

// WithSleep replaces time.Sleep for the oscillator settle wait.
func WithSleep(f func(time.Duration)) Option {
	return func(d *Driver) { d.sleep = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

func New(bus io.BusPort, addr uint8, opts ...Option) *Driver {
	d := &Driver{
		bus:    bus,
		addr:   addr,
		sleep:  time.Sleep,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Initialize resets MODE1: all channels off, oscillator awake.
func (d *Driver) Initialize() error {
	if err := d.write(RegMode1, 0x00); err != nil {
		return fmt.Errorf("reset expander: %w", err)
	}
	d.mu.Lock()
	d.state.Awake = true
	d.mu.Unlock()
	d.logger.Debug("expander reset", "addr", fmt.Sprintf("0x%02X", d.addr))
	return nil
}

// Prescale returns the prescale register value for freq:
// floor(OscillatorHz/4096/freq - 1 + 0.5).
func Prescale(freq int) uint8 {
	v := float64(OscillatorHz)
	v /= float64(Resolution)
	v /= float64(freq)
	v -= 1.0
	return uint8(math.Floor(v + 0.5))
}

// SetFrequency calibrates the carrier. The prescale register only latches while
// the oscillator sleeps, so MODE1 is cycled through sleep and restarted after
// the settle delay. It may be called once per driver.
func (d *Driver) SetFrequency(freq int) error {
	if freq != ServoFrequency {
		return fmt.Errorf("%w: %dHz", ErrInvalidFrequency, freq)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Frequency != 0 {
		return ErrAlreadyCalibrated
	}

	prescale := Prescale(freq)
	oldMode, err := d.read(RegMode1)
	if err != nil {
		return fmt.Errorf("read mode: %w", err)
	}
	if err := d.write(RegMode1, (oldMode&0x7F)|ModeSleep); err != nil {
		return fmt.Errorf("enter sleep: %w", err)
	}
	if err := d.write(RegPrescale, prescale); err != nil {
		return fmt.Errorf("write prescale: %w", err)
	}
	if err := d.write(RegMode1, oldMode); err != nil {
		return fmt.Errorf("restore mode: %w", err)
	}
	d.sleep(SettleDelay)
	if err := d.write(RegMode1, oldMode|ModeRestart); err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	d.state = State{Frequency: freq, Prescale: prescale, Awake: true}
	d.logger.Info("pwm frequency set", "hz", freq, "prescale", prescale)
	return nil
}

// State returns a snapshot of the calibration state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Readback reads MODE1 and PRESCALE from the device.
func (d *Driver) Readback() (mode, prescale uint8, err error) {
	if mode, err = d.read(RegMode1); err != nil {
		return 0, 0, err
	}
	if prescale, err = d.read(RegPrescale); err != nil {
		return 0, 0, err
	}
	return mode, prescale, nil
}

// Ticks converts a pulse to duty ticks at the servo frequency. The result is
// truncated: ticks = pulse*4096/20000.
func Ticks(pulse PulseWidth) uint16 {
	const periodUs = 1_000_000 / ServoFrequency
	return uint16(uint32(pulse) * Resolution / periodUs)
}

// setChannelTicks programs the ON/OFF window of one channel.
func (d *Driver) setChannelTicks(ch Channel, on, off uint16) error {
	base := uint8(RegLed0OnL + 4*int(ch))
	regs := [4]uint8{uint8(on & 0xFF), uint8(on >> 8), uint8(off & 0xFF), uint8(off >> 8)}
	for i, v := range regs {
		if err := d.write(base+uint8(i), v); err != nil {
			return err
		}
	}
	return nil
}

// SetServoPulse commands a servo on ch to the given pulse width.
func (d *Driver) SetServoPulse(ch Channel, pulse PulseWidth) error {
	if ch >= Channels {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	if d.limits != nil {
		if lo, hi, ok := d.limits.Range(ch); ok && (pulse < lo || pulse > hi) {
			return &InvalidPulseError{Channel: ch, Pulse: pulse, Min: lo, Max: hi}
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Frequency == 0 {
		return ErrNotCalibrated
	}
	ticks := Ticks(pulse)
	if ticks >= Resolution {
		return &InvalidPulseError{Channel: ch, Pulse: pulse, Max: PulseWidth(uint32(Resolution-1) * 20000 / Resolution)}
	}
	if err := d.setChannelTicks(ch, 0, ticks); err != nil {
		return fmt.Errorf("channel %d: %w", ch, err)
	}
	d.logger.Debug("servo pulse", "channel", ch, "pulse_us", pulse, "ticks", ticks)
	return nil
}

// Sleep stops the oscillator, which drops every output.
func (d *Driver) Sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mode, err := d.read(RegMode1)
	if err != nil {
		return err
	}
	if err := d.write(RegMode1, (mode&0x7F)|ModeSleep); err != nil {
		return err
	}
	d.state.Awake = false
	return nil
}

func (d *Driver) write(reg, v uint8) error {
	return d.bus.WriteByte(d.addr, reg, v)
}

func (d *Driver) read(reg uint8) (uint8, error) {
	return d.bus.ReadByte(d.addr, reg)
}
