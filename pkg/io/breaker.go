package io

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerFailures uint32 = 5
	defaultBreakerTimeout         = 10 * time.Second
)

// BreakerConfig tunes the bus circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failed transactions that opens the circuit.
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// BreakerBus fails fast once the wrapped bus keeps failing, so a missing or
// wedged expander does not stall every trigger on bus timeouts.
type BreakerBus struct {
	inner   BusPort
	breaker *gobreaker.CircuitBreaker[uint8]
}

func NewBreakerBus(inner BusPort, cfg BreakerConfig, logger *slog.Logger) *BreakerBus {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	cb := gobreaker.NewCircuitBreaker[uint8](gobreaker.Settings{
		Name:        "i2c",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("bus breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &BreakerBus{inner: inner, breaker: cb}
}

func (b *BreakerBus) WriteByte(addr, reg, value uint8) error {
	_, err := b.breaker.Execute(func() (uint8, error) {
		return 0, b.inner.WriteByte(addr, reg, value)
	})
	if err != nil && !IsHardware(err) {
		return writeErr(addr, reg, err)
	}
	return err
}

func (b *BreakerBus) ReadByte(addr, reg uint8) (uint8, error) {
	v, err := b.breaker.Execute(func() (uint8, error) {
		return b.inner.ReadByte(addr, reg)
	})
	if err != nil && !IsHardware(err) {
		return 0, readErr(addr, reg, err)
	}
	return v, err
}

// State reports the breaker state ("closed", "open", "half-open").
func (b *BreakerBus) State() string {
	return b.breaker.State().String()
}

func (b *BreakerBus) Close() error {
	return b.inner.Close()
}
