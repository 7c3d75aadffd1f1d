package cli

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the global flags shared by every command
type Config struct {
	ServerURL string
	Output    string
	Verbose   bool
}

// DefaultConfig reads BLENDIN_SERVER, falling back to a local server
func DefaultConfig() *Config {
	server := os.Getenv("BLENDIN_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	return &Config{ServerURL: server, Output: "text"}
}

// Validate rejects flag values no command can work with
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q, want text or json", c.Output)
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("server URL %q must start with http:// or https://", c.ServerURL)
	}
	return nil
}

// WebSocketURL returns the game endpoint for the configured server
func (c *Config) WebSocketURL() string {
	base := strings.TrimSuffix(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
