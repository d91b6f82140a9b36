package io

import (
	"errors"
	"fmt"
)

// BusPort is the two-wire bus seen by the PWM expander driver. Every failed
// transaction must come back as a *HardwareError.
type BusPort interface {
	WriteByte(addr, reg, value uint8) error
	ReadByte(addr, reg uint8) (uint8, error)
	Close() error
}

// HardwareError reports a failed bus transaction (device absent, NACK, bus
// contention, or a tripped breaker).
type HardwareError struct {
	Op   string
	Addr uint8
	Reg  uint8
	Err  error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware: %s addr=0x%02X reg=0x%02X: %v", e.Op, e.Addr, e.Reg, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// IsHardware reports whether err carries a HardwareError anywhere in its chain.
func IsHardware(err error) bool {
	var hw *HardwareError
	return errors.As(err, &hw)
}

func writeErr(addr, reg uint8, err error) error {
	if err == nil {
		return nil
	}
	return &HardwareError{Op: "write", Addr: addr, Reg: reg, Err: err}
}

func readErr(addr, reg uint8, err error) error {
	if err == nil {
		return nil
	}
	return &HardwareError{Op: "read", Addr: addr, Reg: reg, Err: err}
}
