package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Solver SolverConfig
	Output OutputConfig
	Server ServerConfig
	Log    LogConfig
}

// SolverConfig holds the Newton-Raphson defaults.
type SolverConfig struct {
	Tolerance     float64
	MaxIterations int `mapstructure:"max_iterations"`
}

// OutputConfig holds presentation settings.
type OutputConfig struct {
	Decimals int
}

// ServerConfig holds HTTP tool server settings. MaxIterations caps the
// max_iterations a tool call may request.
type ServerConfig struct {
	Port          int
	MaxIterations int `mapstructure:"max_iterations"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix GONEWTON_,
// e.g. GONEWTON_SOLVER_TOLERANCE.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("solver.tolerance", 1e-7)
	v.SetDefault("solver.max_iterations", 100)
	v.SetDefault("output.decimals", 6)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_iterations", 1000)
	v.SetDefault("log.level", "warn")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("GONEWTON_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "gonewton"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("GONEWTON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// a missing default config file is fine; an explicit one must load
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("solver.tolerance must be positive, got %g", c.Solver.Tolerance)
	}
	if c.Solver.MaxIterations <= 0 {
		return fmt.Errorf("solver.max_iterations must be positive, got %d", c.Solver.MaxIterations)
	}
	if c.Server.MaxIterations <= 0 {
		return fmt.Errorf("server.max_iterations must be positive, got %d", c.Server.MaxIterations)
	}
	if c.Output.Decimals < 0 || c.Output.Decimals > 17 {
		return fmt.Errorf("output.decimals must be in [0, 17], got %d", c.Output.Decimals)
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level; unknown names fall back to warn.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelWarn
	}
	return lvl
}
