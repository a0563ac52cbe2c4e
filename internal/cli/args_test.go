package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		wantErr       string
		wantProps     string
		wantInstances int
		wantDelay     time.Duration
	}{
		{
			name:          "typical launch",
			args:          []string{"props.xml", "3", "5"},
			wantProps:     "props.xml",
			wantInstances: 3,
			wantDelay:     5 * time.Second,
		},
		{
			name:          "zero instances and delay",
			args:          []string{"conf/udp.xml", "0", "0"},
			wantProps:     "conf/udp.xml",
			wantInstances: 0,
			wantDelay:     0,
		},
		{
			name:          "props path passed through untouched",
			args:          []string{" ./my props.xml ", "1", "1"},
			wantProps:     " ./my props.xml ",
			wantInstances: 1,
			wantDelay:     time.Second,
		},
		{
			name:    "non-integer count",
			args:    []string{"props.xml", "abc", "5"},
			wantErr: `invalid instance-count "abc"`,
		},
		{
			name:    "non-integer delay",
			args:    []string{"props.xml", "3", "1.5"},
			wantErr: `invalid delay-seconds "1.5"`,
		},
		{
			name:    "negative count",
			args:    []string{"props.xml", "-2", "5"},
			wantErr: "must not be negative",
		},
		{
			name:    "negative delay",
			args:    []string{"props.xml", "2", "-5"},
			wantErr: "must not be negative",
		},
		{
			name:    "delay overflows duration",
			args:    []string{"props.xml", "2", "9223372036854775807"},
			wantErr: "out of range",
		},
		{
			name:    "too few arguments",
			args:    []string{"props.xml", "2"},
			wantErr: "expected 3 arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := ParseArgs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProps, inv.Props)
			assert.Equal(t, tt.wantInstances, inv.Instances)
			assert.Equal(t, tt.wantDelay, inv.Delay)
		})
	}
}
