// Package config loads optional TOML configuration for the preprocess and
// server commands. Command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// Server configures the HTTP server.
type Server struct {
	Addr          string   `toml:"addr"`
	ReadTimeout   duration `toml:"read_timeout"`
	WriteTimeout  duration `toml:"write_timeout"`
	MaxConcurrent int      `toml:"max_concurrent"`
	CORSOrigin    string   `toml:"cors_origin"`
	StallOnDemand bool     `toml:"stall_on_demand"`
}

// Preprocess configures hierarchy construction.
type Preprocess struct {
	Workers    int     `toml:"workers"`
	Seed       int64   `toml:"seed"`
	Order      string  `toml:"order"` // "random" or "edge_difference"
	Epsilon    float64 `toml:"epsilon"`
	MaxSettled int     `toml:"max_settled"`
	MaxHops    int     `toml:"max_hops"`

	MinLat float64 `toml:"min_lat"`
	MaxLat float64 `toml:"max_lat"`
	MinLng float64 `toml:"min_lng"`
	MaxLng float64 `toml:"max_lng"`
}

// Config is the root of the TOML file.
type Config struct {
	Server     Server     `toml:"server"`
	Preprocess Preprocess `toml:"preprocess"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:          ":8080",
			ReadTimeout:   duration{5 * time.Second},
			WriteTimeout:  duration{5 * time.Second},
			MaxConcurrent: runtime.NumCPU() * 2,
			StallOnDemand: true,
		},
		Preprocess: Preprocess{
			Workers: runtime.NumCPU(),
			Seed:    1,
			Order:   "random",
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// duration wraps time.Duration so TOML values may be written as "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}
