package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// CodeTTL bounds how long a reservation survives if its owner dies
	// without releasing it
	CodeTTL time.Duration

	// Owner is stored against reserved codes to identify the instance holding them
	Owner string
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		CodeTTL:      24 * time.Hour,
		Owner:        "blendin",
	}
}
