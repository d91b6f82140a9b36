// Package choreo models the machine's motion sequences as plain data.
//
// A Choreography is a list of Steps. Steps expand into Keyframes: one actuator
// command followed by a hold. Holds run from the moment the command is issued;
// the servos give no position feedback.
package choreo

import (
	"fmt"
	"time"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/pwm"
)

// Keyframe sets Actuator to Pulse and then waits Hold. A Keyframe whose
// Actuator is actuator.None only waits.
type Keyframe struct {
	Actuator actuator.Actuator
	Pulse    pwm.PulseWidth
	Hold     time.Duration
}

func (k Keyframe) String() string {
	if k.Actuator == actuator.None {
		return fmt.Sprintf("wait %v", k.Hold)
	}
	return fmt.Sprintf("%s->%d hold %v", k.Actuator, k.Pulse, k.Hold)
}

// Step is one authored element of a choreography.
type Step interface {
	expand(dst []Keyframe) ([]Keyframe, error)
}

// Move is a single command.
type Move struct {
	Actuator actuator.Actuator
	Pulse    pwm.PulseWidth
	Hold     time.Duration
}

// Ramp sweeps from From toward To in Step increments, stopping before To.
// Each intermediate position is held for Hold.
type Ramp struct {
	Actuator actuator.Actuator
	From, To pwm.PulseWidth
	Step     pwm.PulseWidth
	Hold     time.Duration
}

// Repeat plays Block Times times in full.
type Repeat struct {
	Times int
	Block []Step
}

// Pause waits without commanding anything.
type Pause struct {
	Hold time.Duration
}

func (m Move) expand(dst []Keyframe) ([]Keyframe, error) {
	if m.Actuator == actuator.None {
		return dst, fmt.Errorf("move without actuator")
	}
	return append(dst, Keyframe{Actuator: m.Actuator, Pulse: m.Pulse, Hold: m.Hold}), nil
}

func (r Ramp) expand(dst []Keyframe) ([]Keyframe, error) {
	if r.Actuator == actuator.None {
		return dst, fmt.Errorf("ramp without actuator")
	}
	if r.Step == 0 {
		return dst, fmt.Errorf("ramp %s %d->%d: zero step", r.Actuator, r.From, r.To)
	}
	if r.From <= r.To {
		for p := int(r.From); p < int(r.To); p += int(r.Step) {
			dst = append(dst, Keyframe{Actuator: r.Actuator, Pulse: pwm.PulseWidth(p), Hold: r.Hold})
		}
	} else {
		for p := int(r.From); p > int(r.To); p -= int(r.Step) {
			dst = append(dst, Keyframe{Actuator: r.Actuator, Pulse: pwm.PulseWidth(p), Hold: r.Hold})
		}
	}
	return dst, nil
}

func (r Repeat) expand(dst []Keyframe) ([]Keyframe, error) {
	if r.Times < 1 {
		return dst, fmt.Errorf("repeat count %d", r.Times)
	}
	var err error
	for i := 0; i < r.Times; i++ {
		for _, s := range r.Block {
			if dst, err = s.expand(dst); err != nil {
				return dst, err
			}
		}
	}
	return dst, nil
}

func (p Pause) expand(dst []Keyframe) ([]Keyframe, error) {
	return append(dst, Keyframe{Hold: p.Hold}), nil
}

// Choreography is one numbered entry of the catalog.
type Choreography struct {
	ID    int
	Name  string
	Steps []Step
}

// Keyframes flattens the steps in execution order. Offsets into the result are
// the keyframe offsets reported by the sequencer.
func (c Choreography) Keyframes() ([]Keyframe, error) {
	var (
		out []Keyframe
		err error
	)
	for i, s := range c.Steps {
		if out, err = s.expand(out); err != nil {
			return nil, fmt.Errorf("choreography %d step %d: %w", c.ID, i, err)
		}
	}
	return out, nil
}

// Duration is the sum of all holds.
func (c Choreography) Duration() time.Duration {
	kfs, err := c.Keyframes()
	if err != nil {
		return 0
	}
	var d time.Duration
	for _, k := range kfs {
		d += k.Hold
	}
	return d
}
