package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/flagx"
	"github.com/dmitrijs2005/libcirc/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON configuration
// files. Interval fields use timex.Duration, which accepts both string values
// such as "30m" and integer nanoseconds. After unmarshalling, its fields are
// copied into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	ListenAddr     string         `json:"listen_addr"`
	DatabaseDSN    string         `json:"database_dsn"`
	SecretKey      string         `json:"secret_key"`
	SessionIdleTTL timex.Duration `json:"session_idle_ttl"`
	SweepInterval  timex.Duration `json:"sweep_interval"`
	MaxConns       int            `json:"max_conns"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JSONConfigFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.ListenAddr = c.ListenAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.SessionIdleTTL = time.Duration(c.SessionIdleTTL.Duration)
	config.SweepInterval = time.Duration(c.SweepInterval.Duration)
	config.MaxConns = c.MaxConns
}
