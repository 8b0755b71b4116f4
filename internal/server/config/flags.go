package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":5858")
//	-d string   PostgreSQL DSN; empty selects the in-memory store
//	-s string   session token HMAC secret key
//	-i int      session idle TTL, minutes
//	-w int      sweep interval, seconds
//	-m int      maximum simultaneously served connections
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-w", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionIdleTTL := fs.Int("i", int(config.SessionIdleTTL.Minutes()), "session_idle_ttl (in minutes)")
	sweepInterval := fs.Int("w", int(config.SweepInterval.Seconds()), "sweep_interval (in seconds)")

	fs.IntVar(&config.MaxConns, "m", config.MaxConns, "max simultaneous connections")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionIdleTTL = time.Duration(*sessionIdleTTL) * time.Minute
	config.SweepInterval = time.Duration(*sweepInterval) * time.Second
}
