package io

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// IO owns the GPIO chip used for the trigger button and the busy indicator.
type IO struct {
	chip   *gpiocdev.Chip
	lines  map[int]*gpiocdev.Line
	mu     sync.Mutex
	logger *slog.Logger
}

func New(chipset string, logger *slog.Logger) (*IO, error) {
	c, err := gpiocdev.NewChip(chipset)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipset, err)
	}
	info, err := c.LineInfo(0)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("read line info: %w", err)
	}
	logger.Debug("gpio chip opened", "chip", chipset, "line0", info.Name)

	return &IO{
		chip:   c,
		lines:  make(map[int]*gpiocdev.Line),
		logger: logger,
	}, nil
}

// Close drives outputs low, returns every requested line to input and
// releases the chip.
func (io *IO) Close() {
	io.mu.Lock()
	defer io.mu.Unlock()
	for offset, l := range io.lines {
		_ = l.SetValue(0)
		_ = l.Reconfigure(gpiocdev.AsInput)
		_ = l.Close()
		delete(io.lines, offset)
	}
	_ = io.chip.Close()
}
