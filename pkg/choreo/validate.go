package choreo

import (
	"errors"
	"fmt"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/pwm"
)

// Violation is a keyframe that would drive the mechanisms into each other or
// past their travel.
type Violation struct {
	Choreography int
	Offset       int
	Keyframe     Keyframe
	Reason       string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("choreography %d keyframe %d (%s): %s", v.Choreography, v.Offset, v.Keyframe, v.Reason)
}

// Validate replays c's keyframes against m starting from every actuator at
// rest. The arm may only move while the lid is open at or past the clearance
// pulse, the lid may only close past clearance while the arm is at rest, and
// the run must end with the arm and flag at rest and the lid at or past
// m.LidClosed.
func Validate(c Choreography, m *actuator.Map) error {
	kfs, err := c.Keyframes()
	if err != nil {
		return err
	}
	clearance := m.LidClearance()
	pos := map[actuator.Actuator]pwm.PulseWidth{}
	for _, a := range actuator.All {
		pos[a] = m.Rest(a)
	}
	fail := func(i int, k Keyframe, format string, args ...any) error {
		return &Violation{Choreography: c.ID, Offset: i, Keyframe: k, Reason: fmt.Sprintf(format, args...)}
	}

	for i, k := range kfs {
		if k.Actuator == actuator.None {
			continue
		}
		b, ok := m.Binding(k.Actuator)
		if !ok {
			return fail(i, k, "actuator not bound")
		}
		if !b.Contains(k.Pulse) {
			return fail(i, k, "pulse outside [%d,%d]", b.Min, b.Max)
		}
		switch k.Actuator {
		case actuator.Arm:
			if pos[actuator.Lid] > clearance {
				return fail(i, k, "arm moves while lid is at %d", pos[actuator.Lid])
			}
		case actuator.Lid:
			if k.Pulse > clearance && pos[actuator.Arm] != m.Rest(actuator.Arm) {
				return fail(i, k, "lid closes while arm is at %d", pos[actuator.Arm])
			}
		}
		pos[k.Actuator] = k.Pulse
	}

	end := Keyframe{}
	switch {
	case pos[actuator.Arm] != m.Rest(actuator.Arm):
		return fail(len(kfs), end, "ends with arm at %d", pos[actuator.Arm])
	case pos[actuator.Flag] != m.Rest(actuator.Flag):
		return fail(len(kfs), end, "ends with flag at %d", pos[actuator.Flag])
	case pos[actuator.Lid] < m.LidClosed():
		return fail(len(kfs), end, "ends with lid open at %d", pos[actuator.Lid])
	}
	return nil
}

// Validate checks every entry and joins the failures.
func (cat *Catalog) Validate(m *actuator.Map) error {
	var errs []error
	for _, c := range cat.entries {
		if err := Validate(c, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
