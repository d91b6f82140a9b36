package io

import (
	"fmt"
	"sync"

	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"
)

// GobotBus talks to the expander through a gobot i2c connector, by default the
// Raspberry Pi adaptor.
type GobotBus struct {
	mu        sync.Mutex
	connector i2c.Connector
	bus       int
	conns     map[uint8]i2c.Connection
	finalize  func() error
}

// OpenGobot connects the raspi adaptor. A negative bus selects the adaptor's
// default bus.
func OpenGobot(bus int) (*GobotBus, error) {
	r := raspi.NewAdaptor()
	if err := r.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}
	g := NewGobotBus(r, bus)
	g.finalize = r.Finalize
	return g, nil
}

// NewGobotBus wraps any gobot i2c connector.
func NewGobotBus(c i2c.Connector, bus int) *GobotBus {
	if bus < 0 {
		bus = c.GetDefaultBus()
	}
	return &GobotBus{
		connector: c,
		bus:       bus,
		conns:     make(map[uint8]i2c.Connection),
	}
}

func (g *GobotBus) conn(addr uint8) (i2c.Connection, error) {
	if c, ok := g.conns[addr]; ok {
		return c, nil
	}
	c, err := g.connector.GetConnection(int(addr), g.bus)
	if err != nil {
		return nil, err
	}
	g.conns[addr] = c
	return c, nil
}

func (g *GobotBus) WriteByte(addr, reg, value uint8) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.conn(addr)
	if err != nil {
		return writeErr(addr, reg, err)
	}
	return writeErr(addr, reg, c.WriteByteData(reg, value))
}

func (g *GobotBus) ReadByte(addr, reg uint8) (uint8, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.conn(addr)
	if err != nil {
		return 0, readErr(addr, reg, err)
	}
	v, err := c.ReadByteData(reg)
	if err != nil {
		return 0, readErr(addr, reg, err)
	}
	return v, nil
}

func (g *GobotBus) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var first error
	for addr, c := range g.conns {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(g.conns, addr)
	}
	if g.finalize != nil {
		if err := g.finalize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
