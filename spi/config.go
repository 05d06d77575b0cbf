package spi

import "github.com/ardnew/softbus/hal"

// DefaultFillSymbol is shifted out while reading when no other symbol is set.
const DefaultFillSymbol byte = 0xFF

// Config is the per-device transfer configuration.
type Config struct {
	Settings   hal.SPISettings
	Select     func() // Called before the transaction; nil to skip
	Deselect   func() // Called after the transaction; nil to skip
	FillSymbol byte   // Shifted out during the read phase
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// NewConfig creates a configuration with the given settings.
func NewConfig(settings hal.SPISettings, opts ...ConfigOption) Config {
	c := Config{
		Settings:   settings,
		FillSymbol: DefaultFillSymbol,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithChipSelect drives pin low for the duration of each transaction.
func WithChipSelect(pin hal.Pin) ConfigOption {
	return func(c *Config) {
		c.Select = func() { pin.Set(false) }
		c.Deselect = func() { pin.Set(true) }
	}
}

// WithSelect sets custom select and deselect hooks.
func WithSelect(sel, desel func()) ConfigOption {
	return func(c *Config) {
		c.Select = sel
		c.Deselect = desel
	}
}

// WithFillSymbol sets the byte shifted out during the read phase.
func WithFillSymbol(b byte) ConfigOption {
	return func(c *Config) {
		c.FillSymbol = b
	}
}
