package io

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Button is a momentary switch wired to ground with the internal pull-up
// enabled, so a press reads as active.
type Button struct {
	mu       sync.Mutex
	line     *gpiocdev.Line
	offset   int
	pressed  bool
	lastEdge time.Duration
	debounce time.Duration
	bounces  int
}

func (b *Button) eventHandler(evt gpiocdev.LineEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rising := evt.Type == gpiocdev.LineEventRisingEdge
	diff := evt.Timestamp - b.lastEdge
	b.lastEdge = evt.Timestamp
	if b.pressed == rising {
		return
	}
	if diff < b.debounce {
		b.bounces++
		return
	}
	b.pressed = rising
}

// Active reports the edge-filtered state of the button.
func (b *Button) Active() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pressed, nil
}

// Bounces returns how many edges were discarded as contact bounce.
func (b *Button) Bounces() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bounces
}

// WatchButton requests lineOffset as an active-low input with pull-up and
// both-edge events. Edges closer together than debounce are treated as bounce.
func (io *IO) WatchButton(lineOffset int, debounce time.Duration) (*Button, error) {
	b := &Button{offset: lineOffset, debounce: debounce}
	line, err := io.chip.RequestLine(lineOffset,
		gpiocdev.AsInput,
		gpiocdev.AsActiveLow,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(b.eventHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO line: %w", err)
	}
	v, err := line.Value()
	if err != nil {
		_ = line.Close()
		return nil, fmt.Errorf("read GPIO line %d: %w", lineOffset, err)
	}
	b.mu.Lock()
	b.line = line
	b.pressed = v == 1
	b.mu.Unlock()

	io.mu.Lock()
	io.lines[lineOffset] = line
	io.mu.Unlock()
	io.logger.Info("watching trigger button", "line", lineOffset, "debounce", debounce)
	return b, nil
}
