package actuator

import (
	"fmt"

	"github.com/Seann-Moser/useless/pkg/pwm"
)

// Actuator is one of the machine's servo-driven mechanisms.
type Actuator int

const (
	None Actuator = iota
	Lid
	Arm
	Flag
)

// All lists the actuators in parking order: the arm retracts before the lid
// is allowed to close on it.
var All = []Actuator{Arm, Flag, Lid}

func (a Actuator) String() string {
	switch a {
	case Lid:
		return "lid"
	case Arm:
		return "arm"
	case Flag:
		return "flag"
	default:
		return "none"
	}
}

func (a *Actuator) UnmarshalText(b []byte) error {
	switch string(b) {
	case "lid":
		*a = Lid
	case "arm":
		*a = Arm
	case "flag":
		*a = Flag
	default:
		return fmt.Errorf("unknown actuator: %s", b)
	}
	return nil
}

// Binding ties an actuator to its PWM channel and safe travel.
type Binding struct {
	Channel pwm.Channel    `yaml:"channel"`
	Min     pwm.PulseWidth `yaml:"min"`
	Max     pwm.PulseWidth `yaml:"max"`
	// Rest is the parked position (lid and arm closed, flag down).
	Rest pwm.PulseWidth `yaml:"rest"`
}

func (b Binding) Contains(p pwm.PulseWidth) bool {
	return p >= b.Min && p <= b.Max
}

// Map is the immutable actuator to channel assignment.
type Map struct {
	bindings map[Actuator]Binding
	channels map[pwm.Channel]Actuator
	// LidClearance is the widest lid pulse at which the arm may still travel.
	lidClearance pwm.PulseWidth
}

// DefaultBindings is the wiring of the stock machine.
func DefaultBindings() map[Actuator]Binding {
	return map[Actuator]Binding{
		Lid:  {Channel: 15, Min: 1100, Max: 2400, Rest: 2400},
		Arm:  {Channel: 14, Min: 1700, Max: 2450, Rest: 2450},
		Flag: {Channel: 13, Min: 1500, Max: 2450, Rest: 2450},
	}
}

const DefaultLidClearance pwm.PulseWidth = 1500

// NewMap validates and freezes a set of bindings. Every actuator must be bound
// to its own channel and rest inside its own range.
func NewMap(bindings map[Actuator]Binding, lidClearance pwm.PulseWidth) (*Map, error) {
	m := &Map{
		bindings:     make(map[Actuator]Binding, len(bindings)),
		channels:     make(map[pwm.Channel]Actuator, len(bindings)),
		lidClearance: lidClearance,
	}
	for _, a := range All {
		b, ok := bindings[a]
		if !ok {
			return nil, fmt.Errorf("actuator %s not bound", a)
		}
		if b.Channel >= pwm.Channels {
			return nil, fmt.Errorf("actuator %s: channel %d out of range", a, b.Channel)
		}
		if other, dup := m.channels[b.Channel]; dup {
			return nil, fmt.Errorf("actuator %s: channel %d already bound to %s", a, b.Channel, other)
		}
		if b.Min > b.Max || !b.Contains(b.Rest) {
			return nil, fmt.Errorf("actuator %s: rest %d outside [%d,%d]", a, b.Rest, b.Min, b.Max)
		}
		m.bindings[a] = b
		m.channels[b.Channel] = a
	}
	lid := m.bindings[Lid]
	if !lid.Contains(lidClearance) || lidClearance >= lid.Rest {
		return nil, fmt.Errorf("lid clearance %d must be inside [%d,%d)", lidClearance, lid.Min, lid.Rest)
	}
	return m, nil
}

// Default returns the stock wiring.
func Default() *Map {
	m, err := NewMap(DefaultBindings(), DefaultLidClearance)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Map) Binding(a Actuator) (Binding, bool) {
	b, ok := m.bindings[a]
	return b, ok
}

func (m *Map) Channel(a Actuator) pwm.Channel {
	return m.bindings[a].Channel
}

func (m *Map) Rest(a Actuator) pwm.PulseWidth {
	return m.bindings[a].Rest
}

func (m *Map) LidClearance() pwm.PulseWidth {
	return m.lidClearance
}

// LidClosed is the narrowest lid pulse that counts as shut: halfway from the
// clearance pulse to rest.
func (m *Map) LidClosed() pwm.PulseWidth {
	return m.lidClearance + (m.bindings[Lid].Rest-m.lidClearance)/2
}

// Range implements pwm.Limits.
func (m *Map) Range(ch pwm.Channel) (pwm.PulseWidth, pwm.PulseWidth, bool) {
	a, ok := m.channels[ch]
	if !ok {
		return 0, 0, false
	}
	b := m.bindings[a]
	return b.Min, b.Max, true
}
