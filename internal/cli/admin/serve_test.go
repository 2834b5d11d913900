package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifthq/docsift/internal/config"
)

func TestApplyPortFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"NotGiven", nil, "9090"},
		{"Override", []string{"--port", "3000"}, "3000"},
		{"ExplicitDefault", []string{"--port", "8080"}, "8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ServeCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg := &config.Config{Port: "9090"}
			applyPortFlag(cmd, cfg)
			assert.Equal(t, tt.want, cfg.Port)
		})
	}
}
