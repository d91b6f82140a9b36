package io

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// SetPinState drives a GPIO output line high (1) or low (0), requesting the
// line as an output on first use.
func (io *IO) SetPinState(pinName int, state int) error {
	io.mu.Lock()
	defer io.mu.Unlock()
	l, ok := io.lines[pinName]
	if !ok {
		var err error
		l, err = io.chip.RequestLine(pinName, gpiocdev.AsOutput(0))
		if err != nil {
			return fmt.Errorf("request output line %d: %w", pinName, err)
		}
		io.lines[pinName] = l
	}
	return l.SetValue(state)
}

// Indicator is an LED on a GPIO output, lit while a choreography runs.
type Indicator struct {
	io  *IO
	pin int
}

func (io *IO) Indicator(pin int) *Indicator {
	return &Indicator{io: io, pin: pin}
}

func (i *Indicator) Set(on bool) error {
	state := 0
	if on {
		state = 1
	}
	return i.io.SetPinState(i.pin, state)
}
