package io

import (
	"errors"
	"sync"
)

// ErrNoDevice is what the simulated bus answers for an unknown address.
var ErrNoDevice = errors.New("no device at address")

// Write is one register write seen by SimBus.
type Write struct {
	Addr  uint8
	Reg   uint8
	Value uint8
}

// SimBus is an in-memory register file used for bench runs without hardware
// and for tests. Only the addresses passed to NewSimBus answer.
type SimBus struct {
	mu     sync.Mutex
	regs   map[uint8]*[256]uint8
	writes []Write
	fault  func(w Write) error
	closed bool
}

func NewSimBus(addrs ...uint8) *SimBus {
	s := &SimBus{regs: make(map[uint8]*[256]uint8)}
	for _, a := range addrs {
		s.regs[a] = &[256]uint8{}
	}
	return s
}

// SetFault installs a hook consulted before every write; a non-nil return
// fails the write without touching the register file.
func (s *SimBus) SetFault(f func(w Write) error) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

func (s *SimBus) WriteByte(addr, reg, value uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := Write{Addr: addr, Reg: reg, Value: value}
	if s.fault != nil {
		if err := s.fault(w); err != nil {
			return writeErr(addr, reg, err)
		}
	}
	r, ok := s.regs[addr]
	if !ok || s.closed {
		return writeErr(addr, reg, ErrNoDevice)
	}
	r[reg] = value
	s.writes = append(s.writes, w)
	return nil
}

func (s *SimBus) ReadByte(addr, reg uint8) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[addr]
	if !ok || s.closed {
		return 0, readErr(addr, reg, ErrNoDevice)
	}
	return r[reg], nil
}

// Register returns the current value of a register.
func (s *SimBus) Register(addr, reg uint8) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.regs[addr]; ok {
		return r[reg]
	}
	return 0
}

// Writes returns a copy of every successful write so far.
func (s *SimBus) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Write, len(s.writes))
	copy(out, s.writes)
	return out
}

func (s *SimBus) Reset() {
	s.mu.Lock()
	s.writes = nil
	s.mu.Unlock()
}

func (s *SimBus) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
