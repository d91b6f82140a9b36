/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/choreo"
	"github.com/Seann-Moser/useless/pkg/config"
	"github.com/Seann-Moser/useless/pkg/io"
	"github.com/Seann-Moser/useless/pkg/logger"
	"github.com/Seann-Moser/useless/pkg/pwm"
	"github.com/Seann-Moser/useless/pkg/sequencer"
	"github.com/Seann-Moser/useless/pkg/tracer"
)

// machine is everything between the bus and the sequencer, initialized and
// calibrated.
type machine struct {
	cfg       config.Config
	logger    *slog.Logger
	bus       *io.BreakerBus
	driver    *pwm.Driver
	actuators *actuator.Map
	engine    *sequencer.Engine
	catalog   *choreo.Catalog
	closers   []func() error
}

func openBus(cfg config.BusConfig) (io.BusPort, error) {
	switch strings.ToLower(cfg.Backend) {
	case "gobot":
		b, err := io.OpenGobot(cfg.Number)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "sim":
		return io.NewSimBus(cfg.Address), nil
	default:
		b, err := io.OpenPeriph(cfg.Name)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// openMachine loads config, checks the catalog against the configured
// actuators, opens the bus, resets the expander and sets the servo frequency. Failing any of that leaves nothing to drive, so callers
// treat the error as fatal.
func openMachine() (*machine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	m := &machine{cfg: cfg, logger: log, catalog: choreo.Builtin()}
	m.closers = append(m.closers, closeLog)

	shutdown, err := tracer.Setup(cfg.Tracer)
	if err != nil {
		m.Close()
		return nil, err
	}
	m.closers = append(m.closers, func() error { return shutdown(context.Background()) })

	if m.actuators, err = cfg.Actuators.Map(); err != nil {
		m.Close()
		return nil, err
	}
	if err := m.catalog.Validate(m.actuators); err != nil {
		m.Close()
		return nil, fmt.Errorf("catalog unsafe with configured actuators: %w", err)
	}

	raw, err := openBus(cfg.Bus)
	if err != nil {
		m.Close()
		return nil, err
	}
	m.bus = io.NewBreakerBus(raw, cfg.Bus.Breaker, log)
	m.closers = append(m.closers, m.bus.Close)
	log.Info("bus opened", "backend", cfg.Bus.Backend, "address", fmt.Sprintf("0x%02X", cfg.Bus.Address))

	m.driver = pwm.New(m.bus, cfg.Bus.Address, pwm.WithLimits(m.actuators), pwm.WithLogger(log))
	if err := m.driver.Initialize(); err != nil {
		m.Close()
		return nil, err
	}
	if err := m.driver.SetFrequency(pwm.ServoFrequency); err != nil {
		m.Close()
		return nil, err
	}
	m.engine = sequencer.New(m.driver, m.actuators, sequencer.WithLogger(log))
	return m, nil
}

// rest parks every actuator and puts the expander to sleep.
func (m *machine) rest() error {
	if err := m.engine.Park(); err != nil {
		return fmt.Errorf("park: %w", err)
	}
	return m.driver.Sleep()
}

// Close releases resources in reverse order of acquisition.
func (m *machine) Close() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && m.logger != nil {
			m.logger.Warn("close failed", "error", err)
		}
	}
	m.closers = nil
}
