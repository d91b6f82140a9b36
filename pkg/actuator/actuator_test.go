package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/useless/pkg/pwm"
)

func TestDefaultMap(t *testing.T) {
	m := Default()

	assert.Equal(t, pwm.Channel(15), m.Channel(Lid))
	assert.Equal(t, pwm.Channel(14), m.Channel(Arm))
	assert.Equal(t, pwm.Channel(13), m.Channel(Flag))
	assert.Equal(t, pwm.PulseWidth(2400), m.Rest(Lid))
	assert.Equal(t, pwm.PulseWidth(2450), m.Rest(Arm))
	assert.Equal(t, pwm.PulseWidth(2450), m.Rest(Flag))

	lo, hi, ok := m.Range(14)
	require.True(t, ok)
	assert.Equal(t, pwm.PulseWidth(1700), lo)
	assert.Equal(t, pwm.PulseWidth(2450), hi)

	_, _, ok = m.Range(0)
	assert.False(t, ok)

	assert.Equal(t, pwm.PulseWidth(1500), m.LidClearance())
	assert.Equal(t, pwm.PulseWidth(1950), m.LidClosed())
}

func TestNewMapRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[Actuator]Binding)
	}{
		{"missing", func(b map[Actuator]Binding) { delete(b, Flag) }},
		{"shared channel", func(b map[Actuator]Binding) {
			f := b[Flag]
			f.Channel = 14
			b[Flag] = f
		}},
		{"channel out of range", func(b map[Actuator]Binding) {
			f := b[Flag]
			f.Channel = 16
			b[Flag] = f
		}},
		{"rest outside range", func(b map[Actuator]Binding) {
			a := b[Arm]
			a.Rest = 1600
			b[Arm] = a
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBindings()
			tt.mutate(b)
			_, err := NewMap(b, DefaultLidClearance)
			assert.Error(t, err)
		})
	}
}

func TestNewMapRejectsClearance(t *testing.T) {
	_, err := NewMap(DefaultBindings(), 2400)
	assert.Error(t, err)
	_, err = NewMap(DefaultBindings(), 1000)
	assert.Error(t, err)
}

func TestActuatorText(t *testing.T) {
	var a Actuator
	require.NoError(t, a.UnmarshalText([]byte("flag")))
	assert.Equal(t, Flag, a)
	assert.Equal(t, "flag", a.String())
	assert.Error(t, a.UnmarshalText([]byte("tail")))
}
