package wire

import "time"

// DefaultTimeout bounds the wait for requested bytes when none is set.
const DefaultTimeout = 100 * time.Millisecond

// Config is the per-device transfer configuration.
type Config struct {
	Address uint8         // 7-bit target address
	Restart bool          // Repeated start between write and read phases
	Stop    bool          // Stop condition after the read phase
	Timeout time.Duration // Maximum wait for requested bytes
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// NewConfig creates a configuration for the target at address with
// restart and stop enabled.
func NewConfig(address uint8, opts ...ConfigOption) Config {
	c := Config{
		Address: address,
		Restart: true,
		Stop:    true,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithRestart sets whether the write phase ends with a repeated start.
func WithRestart(restart bool) ConfigOption {
	return func(c *Config) {
		c.Restart = restart
	}
}

// WithStop sets whether the read phase ends with a stop condition.
func WithStop(stop bool) ConfigOption {
	return func(c *Config) {
		c.Stop = stop
	}
}

// WithTimeout sets the maximum wait for requested bytes.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}
