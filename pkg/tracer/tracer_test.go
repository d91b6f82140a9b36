package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/useless/pkg/config"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TracerConfig
		wantErr bool
	}{
		{"disabled", config.TracerConfig{}, false},
		{"noop", config.TracerConfig{Enabled: true, Exporter: "noop"}, false},
		{"stdout", config.TracerConfig{Enabled: true, Exporter: "stdout"}, false},
		{"unknown", config.TracerConfig{Enabled: true, Exporter: "zipkin"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}
