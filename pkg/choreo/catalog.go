package choreo

import (
	"errors"
	"fmt"
	"time"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/pwm"
)

var ErrUnknownChoreography = errors.New("unknown choreography")

// Catalog holds choreographies indexed 1..Len().
type Catalog struct {
	entries []Choreography
}

// NewCatalog requires entries numbered 1..n in order.
func NewCatalog(entries ...Choreography) (*Catalog, error) {
	for i, c := range entries {
		if c.ID != i+1 {
			return nil, fmt.Errorf("catalog entry %d has id %d", i+1, c.ID)
		}
		if _, err := c.Keyframes(); err != nil {
			return nil, err
		}
	}
	return &Catalog{entries: entries}, nil
}

func (cat *Catalog) Len() int { return len(cat.entries) }

func (cat *Catalog) Get(id int) (Choreography, error) {
	if id < 1 || id > len(cat.entries) {
		return Choreography{}, fmt.Errorf("%w: %d", ErrUnknownChoreography, id)
	}
	return cat.entries[id-1], nil
}

func (cat *Catalog) All() []Choreography {
	out := make([]Choreography, len(cat.entries))
	copy(out, cat.entries)
	return out
}

const ms = time.Millisecond

func lid(p pwm.PulseWidth, hold time.Duration) Move {
	return Move{Actuator: actuator.Lid, Pulse: p, Hold: hold}
}

func arm(p pwm.PulseWidth, hold time.Duration) Move {
	return Move{Actuator: actuator.Arm, Pulse: p, Hold: hold}
}

func flag(p pwm.PulseWidth, hold time.Duration) Move {
	return Move{Actuator: actuator.Flag, Pulse: p, Hold: hold}
}

func times(n int, block ...Step) Repeat {
	return Repeat{Times: n, Block: block}
}

// Pulses used by the stock catalog.
const (
	lidOpen    pwm.PulseWidth = 1100
	lidHalf    pwm.PulseWidth = 1500
	lidClosed  pwm.PulseWidth = 2400
	lidShut    pwm.PulseWidth = 2300
	armOut     pwm.PulseWidth = 1700
	armHome    pwm.PulseWidth = 2450
	flagUp     pwm.PulseWidth = 1500
	flagTwitch pwm.PulseWidth = 2000
	flagDown   pwm.PulseWidth = 2450
)

// Builtin returns the stock 50-entry catalog.
func Builtin() *Catalog {
	cat, err := NewCatalog(builtin()...)
	if err != nil {
		panic(err)
	}
	return cat
}

func builtin() []Choreography {
	return []Choreography{
		{ID: 1, Name: "classic", Steps: []Step{
			lid(lidOpen, 1000*ms), arm(armOut, 500*ms), arm(armHome, 1000*ms), lid(lidClosed, 1000*ms),
		}},
		{ID: 2, Name: "brisk", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 250*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 3, Name: "snap", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 100*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 4, Name: "linger", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 2500*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 5, Name: "peek", Steps: []Step{
			lid(lidOpen, 100*ms),
			times(3, lid(lidHalf, 500*ms), lid(lidOpen, 500*ms)),
			arm(armOut, 100*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 6, Name: "hesitate", Steps: []Step{
			lid(lidOpen, 100*ms),
			times(3, arm(2300, 250*ms), arm(armOut, 100*ms)),
			arm(armHome, 250*ms), lid(lidClosed, 0),
		}},
		{ID: 7, Name: "slow retreat", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 100*ms),
			Ramp{Actuator: actuator.Arm, From: armOut, To: armHome, Step: 20, Hold: 100 * ms},
			arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 8, Name: "flag wave", Steps: []Step{
			Pause{Hold: 1000 * ms},
			lid(lidOpen, 100*ms), arm(armOut, 100*ms), arm(armHome, 100*ms),
			Ramp{Actuator: actuator.Flag, From: flagUp, To: flagDown, Step: 50, Hold: 30 * ms},
			Pause{Hold: 250 * ms},
			times(5,
				Ramp{Actuator: actuator.Flag, From: flagDown, To: flagUp, Step: 50, Hold: 30 * ms},
				Ramp{Actuator: actuator.Flag, From: flagUp, To: flagDown, Step: 50, Hold: 30 * ms},
			),
			Pause{Hold: 250 * ms},
			Ramp{Actuator: actuator.Flag, From: flagDown, To: flagUp, Step: 50, Hold: 50 * ms},
			flag(flagDown, 100*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 9, Name: "double take", Steps: []Step{
			lid(lidOpen, 500*ms), lid(lidClosed, 500*ms), lid(lidOpen, 500*ms),
			arm(armOut, 500*ms), arm(armHome, 500*ms), lid(lidClosed, 0),
		}},
		{ID: 10, Name: "steady", Steps: []Step{
			lid(lidOpen, 200*ms), arm(armOut, 200*ms), arm(armHome, 200*ms), lid(lidClosed, 0),
		}},
		{ID: 11, Name: "squeeze", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 500*ms),
			lid(lidHalf, 500*ms), lid(lidOpen, 500*ms),
			arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 12, Name: "two stage", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 100*ms), arm(2300, 100*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 13, Name: "salute", Steps: []Step{
			lid(lidOpen, 500*ms), arm(armOut, 500*ms),
			flag(flagUp, 500*ms), flag(flagDown, 500*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 14, Name: "second look", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 500*ms), arm(armHome, 100*ms),
			lid(lidClosed, 500*ms), lid(lidOpen, 500*ms), lid(lidClosed, 0),
		}},
		{ID: 15, Name: "victory", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 500*ms), arm(armHome, 100*ms),
			times(3, flag(flagUp, 200*ms), flag(flagDown, 200*ms)),
			lid(lidClosed, 0),
		}},
		{ID: 16, Name: "even tempo", Steps: []Step{
			lid(lidOpen, 300*ms), arm(armOut, 300*ms),
			lid(lidHalf, 300*ms), lid(lidOpen, 300*ms),
			arm(armHome, 300*ms), lid(lidClosed, 0),
		}},
		{ID: 17, Name: "warning", Steps: []Step{
			lid(lidOpen, 200*ms), flag(flagUp, 200*ms), flag(flagDown, 200*ms),
			arm(armOut, 300*ms), arm(armHome, 200*ms), lid(lidClosed, 0),
		}},
		{ID: 18, Name: "deliberate", Steps: []Step{
			lid(lidOpen, 400*ms), arm(armOut, 400*ms), arm(armHome, 400*ms), lid(lidClosed, 400*ms),
		}},
		{ID: 19, Name: "double tap", Steps: []Step{
			lid(lidOpen, 300*ms),
			times(2, arm(armOut, 300*ms), arm(armHome, 300*ms)),
			lid(lidClosed, 0),
		}},
		{ID: 20, Name: "twitch", Steps: []Step{
			lid(lidOpen, 100*ms), flag(flagTwitch, 100*ms), flag(flagDown, 100*ms),
			arm(armOut, 300*ms), arm(armHome, 300*ms), lid(lidClosed, 0),
		}},
		{ID: 21, Name: "flag mid reach", Steps: []Step{
			lid(lidOpen, 200*ms), arm(armOut, 200*ms),
			flag(flagUp, 200*ms), flag(flagDown, 200*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 22, Name: "adjust", Steps: []Step{
			lid(lidOpen, 300*ms), arm(armOut, 100*ms), arm(1800, 100*ms), arm(armHome, 300*ms), lid(lidClosed, 0),
		}},
		{ID: 23, Name: "quick flag", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 500*ms),
			flag(flagUp, 100*ms), flag(flagDown, 100*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 24, Name: "settle", Steps: []Step{
			lid(lidOpen, 200*ms), arm(armOut, 200*ms), arm(armHome, 200*ms), arm(armHome, 200*ms), lid(lidClosed, 0),
		}},
		{ID: 25, Name: "ease back", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 300*ms), arm(2000, 300*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 26, Name: "nudge", Steps: []Step{
			lid(lidOpen, 300*ms), arm(armOut, 100*ms),
			lid(lidHalf, 100*ms), lid(lidOpen, 300*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 27, Name: "afterthought", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 400*ms), arm(armHome, 200*ms),
			flag(flagUp, 400*ms), flag(flagDown, 0), lid(lidShut, 0),
		}},
		{ID: 28, Name: "slow close", Steps: []Step{
			lid(lidOpen, 200*ms), arm(armOut, 300*ms), arm(armHome, 100*ms),
			lid(lidHalf, 200*ms), lid(lidShut, 0),
		}},
		{ID: 29, Name: "last word", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 200*ms), arm(armHome, 200*ms), lid(lidShut, 200*ms),
			flag(flagUp, 100*ms), flag(flagDown, 0),
		}},
		{ID: 30, Name: "flinch", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 100*ms),
			lid(lidHalf, 100*ms), lid(lidOpen, 100*ms),
			arm(armHome, 0), lid(lidShut, 0),
		}},
		{ID: 31, Name: "fake out", Steps: []Step{
			lid(1200, 1000*ms), arm(1800, 1000*ms), arm(armHome, 200*ms),
			lid(lidOpen, 500*ms), lid(lidClosed, 0),
		}},
		{ID: 32, Name: "celebrate", Steps: []Step{
			lid(lidOpen, 500*ms), arm(armOut, 500*ms),
			times(3, flag(flagUp, 200*ms), flag(flagDown, 200*ms)),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 33, Name: "second try", Steps: []Step{
			lid(lidOpen, 1000*ms), arm(armOut, 500*ms), arm(2300, 500*ms), arm(armOut, 500*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 34, Name: "sneak", Steps: []Step{
			lid(lidHalf, 1000*ms), arm(armOut, 500*ms), arm(armHome, 200*ms), lid(lidClosed, 0),
		}},
		{ID: 35, Name: "flag first", Steps: []Step{
			lid(lidOpen, 300*ms), flag(flagUp, 300*ms), flag(flagDown, 300*ms),
			arm(armOut, 300*ms), arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 36, Name: "ceremony", Steps: []Step{
			lid(lidOpen, 400*ms), arm(armOut, 400*ms),
			flag(flagUp, 400*ms), flag(flagDown, 400*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 37, Name: "half effort", Steps: []Step{
			lid(lidOpen, 100*ms), arm(1800, 100*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 38, Name: "double flag", Steps: []Step{
			lid(lidOpen, 200*ms), arm(armOut, 200*ms),
			times(2, flag(flagUp, 100*ms), flag(flagDown, 100*ms)),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 39, Name: "just the flag", Steps: []Step{
			lid(lidOpen, 300*ms), flag(flagTwitch, 200*ms), flag(flagDown, 200*ms), lid(lidClosed, 0),
		}},
		{ID: 40, Name: "slow ceremony", Steps: []Step{
			lid(lidOpen, 500*ms), arm(armOut, 500*ms),
			flag(flagUp, 500*ms), flag(flagDown, 500*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 41, Name: "cautious", Steps: []Step{
			lid(lidHalf, 1000*ms), arm(armOut, 500*ms), arm(armHome, 200*ms), lid(lidClosed, 0),
		}},
		{ID: 42, Name: "wave and slam", Steps: []Step{
			lid(lidOpen, 300*ms), arm(armOut, 500*ms),
			flag(flagUp, 300*ms), flag(flagDown, 0),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 43, Name: "wobble", Steps: []Step{
			lid(lidOpen, 400*ms), arm(armOut, 200*ms),
			lid(lidHalf, 200*ms), lid(lidOpen, 300*ms),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 44, Name: "hurry", Steps: []Step{
			lid(lidOpen, 200*ms), arm(armOut, 100*ms), arm(2300, 100*ms), arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 45, Name: "flag only", Steps: []Step{
			lid(lidOpen, 500*ms), flag(flagUp, 200*ms), flag(flagDown, 0), lid(lidClosed, 0),
		}},
		{ID: 46, Name: "reluctant", Steps: []Step{
			lid(lidOpen, 200*ms), arm(1800, 500*ms), arm(armHome, 100*ms), lid(lidClosed, 0),
		}},
		{ID: 47, Name: "parade", Steps: []Step{
			lid(lidOpen, 500*ms), arm(armOut, 500*ms),
			times(4, flag(flagUp, 200*ms), flag(flagDown, 200*ms)),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 48, Name: "flag dip", Steps: []Step{
			lid(lidOpen, 100*ms), arm(armOut, 500*ms),
			flag(flagUp, 100*ms), flag(flagTwitch, 100*ms), flag(flagDown, 0),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
		{ID: 49, Name: "retreat and wave", Steps: []Step{
			lid(lidOpen, 300*ms), arm(2000, 200*ms), arm(armHome, 0),
			flag(flagUp, 500*ms), flag(flagDown, 0), lid(lidClosed, 0),
		}},
		{ID: 50, Name: "finale", Steps: []Step{
			lid(lidOpen, 200*ms), arm(armOut, 300*ms),
			flag(flagUp, 300*ms), flag(flagDown, 0),
			arm(armHome, 0), lid(lidClosed, 0),
		}},
	}
}
