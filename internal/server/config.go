package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains table rules
type GameSettings struct {
	StartingBalance int `hcl:"starting_balance,optional"`
	MaxSeats        int `hcl:"max_seats,optional"`

	// TurnTimeoutSeconds force-stands a seat holding the turn longer
	// than this. 0 disables the sweep and matches the behavior of
	// relying on presence expiry alone.
	TurnTimeoutSeconds int `hcl:"turn_timeout_seconds,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			StartingBalance: 100,
			MaxSeats:        5,
		},
	}
}

// LoadConfig loads server configuration from an HCL file, falling back
// to defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.StartingBalance == 0 {
		config.Game.StartingBalance = 100
	}
	if config.Game.MaxSeats == 0 {
		config.Game.MaxSeats = 5
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.StartingBalance < 1 {
		return fmt.Errorf("starting balance must be positive, got %d", c.Game.StartingBalance)
	}
	if c.Game.MaxSeats < 1 || c.Game.MaxSeats > 5 {
		return fmt.Errorf("max seats must be between 1 and 5, got %d", c.Game.MaxSeats)
	}
	if c.Game.TurnTimeoutSeconds < 0 {
		return fmt.Errorf("turn timeout must not be negative, got %d", c.Game.TurnTimeoutSeconds)
	}
	return nil
}

// ListenAddress returns the host:port the server binds to.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TurnTimeout returns the configured timeout as a duration, 0 when
// disabled.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.Game.TurnTimeoutSeconds) * time.Second
}
