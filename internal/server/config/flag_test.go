package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "postgres://localhost/circ", "-s", "secret",
			"-i", "45", "-w", "30", "-m", "64",
		}, expectPanic: false,
			expected: &Config{
				ListenAddr:     "127.0.0.1:9090",
				DatabaseDSN:    "postgres://localhost/circ",
				SecretKey:      "secret",
				SessionIdleTTL: 45 * time.Minute,
				SweepInterval:  30 * time.Second,
				MaxConns:       64,
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
