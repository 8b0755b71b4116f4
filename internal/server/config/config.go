// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the circulation server.
//
// Fields:
//   - ListenAddr: bind address for the TCP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing session tokens (HS256). Do not use
//     test defaults in prod.
//   - SessionIdleTTL: how long a session may sit idle before eviction.
//   - SweepInterval: how often the idle and overdue sweepers run.
//   - MaxConns: maximum simultaneously served connections.
type Config struct {
	ListenAddr     string
	DatabaseDSN    string
	SecretKey      string
	SessionIdleTTL time.Duration
	SweepInterval  time.Duration
	MaxConns       int
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":5858"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.SessionIdleTTL = 30 * time.Minute
	c.SweepInterval = 1 * time.Minute
	c.MaxConns = 128
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
