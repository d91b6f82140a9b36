package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/warthog618/go-gpiocdev/device/rpi"
	"gopkg.in/yaml.v3"

	"github.com/Seann-Moser/useless/pkg/actuator"
	"github.com/Seann-Moser/useless/pkg/controller"
	"github.com/Seann-Moser/useless/pkg/io"
	"github.com/Seann-Moser/useless/pkg/pwm"
)

const DefaultConfigFile = "useless.yaml"

// Config is the top-level machine configuration.
type Config struct {
	Bus        BusConfig         `yaml:"bus"`
	Actuators  ActuatorsConfig   `yaml:"actuators"`
	Trigger    TriggerConfig     `yaml:"trigger"`
	Indicator  IndicatorConfig   `yaml:"indicator"`
	Dispatcher controller.Config `yaml:"dispatcher"`
	Logger     LoggerConfig      `yaml:"logger"`
	Tracer     TracerConfig      `yaml:"tracer"`
}

// BusConfig selects the two-wire bus backend.
type BusConfig struct {
	// Backend is "periph", "gobot" or "sim".
	Backend string           `yaml:"backend"`
	Name    string           `yaml:"name"`   // periph bus name, e.g. "I2C1"
	Number  int              `yaml:"number"` // gobot bus number, -1 for the adaptor default
	Address uint8            `yaml:"address"`
	Breaker io.BreakerConfig `yaml:"breaker"`
}

type ActuatorsConfig struct {
	Lid          actuator.Binding `yaml:"lid"`
	Arm          actuator.Binding `yaml:"arm"`
	Flag         actuator.Binding `yaml:"flag"`
	LidClearance pwm.PulseWidth   `yaml:"lid_clearance"`
}

// Map freezes the configured bindings.
func (a ActuatorsConfig) Map() (*actuator.Map, error) {
	return actuator.NewMap(map[actuator.Actuator]actuator.Binding{
		actuator.Lid:  a.Lid,
		actuator.Arm:  a.Arm,
		actuator.Flag: a.Flag,
	}, a.LidClearance)
}

type TriggerConfig struct {
	Chip     string        `yaml:"chip"`
	Line     int           `yaml:"line"`
	Debounce time.Duration `yaml:"debounce"`
}

type IndicatorConfig struct {
	// Line is the GPIO offset of the busy LED; negative disables it.
	Line int `yaml:"line"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	Output string `yaml:"output"` // "stdout", "stderr" or a file path
}

type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Default returns the stock machine wiring.
func Default() Config {
	b := actuator.DefaultBindings()
	return Config{
		Bus: BusConfig{
			Backend: "periph",
			Name:    "I2C1",
			Number:  -1,
			Address: io.DefaultAddress,
		},
		Actuators: ActuatorsConfig{
			Lid:          b[actuator.Lid],
			Arm:          b[actuator.Arm],
			Flag:         b[actuator.Flag],
			LidClearance: actuator.DefaultLidClearance,
		},
		Trigger: TriggerConfig{
			Chip:     "gpiochip0",
			Line:     rpi.GPIO21,
			Debounce: 10 * time.Millisecond,
		},
		Indicator: IndicatorConfig{Line: -1},
		Dispatcher: controller.Config{
			PollInterval: 10 * time.Millisecond,
			StableFor:    50 * time.Millisecond,
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Exporter: "noop"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Bus.Backend) {
	case "periph", "gobot", "sim":
	default:
		errs = append(errs, fmt.Errorf("bus.backend: unknown backend %q", c.Bus.Backend))
	}
	if c.Bus.Address == 0 || c.Bus.Address > 0x7F {
		errs = append(errs, fmt.Errorf("bus.address: 0x%02X is not a 7-bit address", c.Bus.Address))
	}
	if _, err := c.Actuators.Map(); err != nil {
		errs = append(errs, fmt.Errorf("actuators: %w", err))
	}
	if c.Trigger.Line < 0 {
		errs = append(errs, fmt.Errorf("trigger.line: %d", c.Trigger.Line))
	}
	if c.Indicator.Line >= 0 && c.Indicator.Line == c.Trigger.Line {
		errs = append(errs, errors.New("indicator.line: shares the trigger line"))
	}
	if c.Dispatcher.PollInterval <= 0 {
		errs = append(errs, errors.New("dispatcher.poll_interval must be positive"))
	}
	if c.Dispatcher.StableFor < 0 || c.Dispatcher.Cooldown < 0 {
		errs = append(errs, errors.New("dispatcher durations must not be negative"))
	}
	return errors.Join(errs...)
}
