package io

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// DefaultAddress is the expander's factory 7-bit address.
const DefaultAddress = uint8(pca9685.I2CAddr)

// PeriphBus talks to the expander through periph.io's i2c registry.
type PeriphBus struct {
	mu  sync.Mutex
	bus i2c.BusCloser
}

// OpenPeriph loads the periph host drivers and opens the named bus ("" picks the
// first registered one, "I2C1" on most Raspberry Pi boards).
func OpenPeriph(name string) (*PeriphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return NewPeriphBus(bus), nil
}

// NewPeriphBus wraps an already opened periph bus.
func NewPeriphBus(bus i2c.BusCloser) *PeriphBus {
	return &PeriphBus{bus: bus}
}

func (p *PeriphBus) WriteByte(addr, reg, value uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := i2c.Dev{Bus: p.bus, Addr: uint16(addr)}
	return writeErr(addr, reg, d.Tx([]byte{reg, value}, nil))
}

func (p *PeriphBus) ReadByte(addr, reg uint8) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := i2c.Dev{Bus: p.bus, Addr: uint16(addr)}
	r := make([]byte, 1)
	if err := d.Tx([]byte{reg}, r); err != nil {
		return 0, readErr(addr, reg, err)
	}
	return r[0], nil
}

func (p *PeriphBus) Close() error {
	return p.bus.Close()
}
