// Package config loads a bus description from YAML.
//
// A description names the serial line, every SPI and two-wire bus and the
// devices on them, so a program can build its controllers without
// hard-coding addresses and clock settings:
//
//	log_level: info
//	serial:
//	  baud: 115200
//	spi:
//	  - name: spi0
//	    devices:
//	      - name: accel
//	        clock_hz: 1000000
//	        mode: 3
//	i2c:
//	  - name: i2c0
//	    devices:
//	      - name: thermo
//	        address: 0x48
//	        timeout: 50ms
//
// Omitted fields take the same defaults as the package constructors.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/softbus/bus"
	"github.com/ardnew/softbus/hal"
	"github.com/ardnew/softbus/pkg"
	"github.com/ardnew/softbus/serial"
	"github.com/ardnew/softbus/shared"
	"github.com/ardnew/softbus/spi"
	"github.com/ardnew/softbus/wire"
)

// Config is a complete bus description.
type Config struct {
	LogLevel       string        `yaml:"log_level"`       // debug, info, warn, error
	LogFormat      string        `yaml:"log_format"`      // text, json
	SampleInterval time.Duration `yaml:"sample_interval"` // Period between device polls
	History        int           `yaml:"history"`         // Shared value history depth
	Serial         SerialConfig  `yaml:"serial"`
	SPI            []SPIBus      `yaml:"spi"`
	I2C            []I2CBus      `yaml:"i2c"`
}

// SerialConfig describes the multiplexed serial line.
type SerialConfig struct {
	Baud     int    `yaml:"baud"`
	TxBuffer int    `yaml:"tx_buffer"` // Per-port transmit buffer size
	RxBuffer int    `yaml:"rx_buffer"` // Per-port receive buffer size
	FIFODir  string `yaml:"fifo_dir"`  // Named-pipe directory; empty for an in-memory line
}

// BusConfig holds the dispatcher settings shared by every bus kind.
type BusConfig struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"` // Transaction slots
	Shutdown string `yaml:"shutdown"` // drain, abort
}

// SPIBus describes one SPI bus and its devices.
type SPIBus struct {
	BusConfig `yaml:",inline"`
	Devices   []SPIDevice `yaml:"devices"`
}

// SPIDevice describes one chip on an SPI bus.
type SPIDevice struct {
	Name     string `yaml:"name"`
	ClockHz  uint32 `yaml:"clock_hz"`
	Mode     uint8  `yaml:"mode"`      // 0-3
	BitOrder string `yaml:"bit_order"` // msb, lsb
	Fill     *uint8 `yaml:"fill,omitempty"`
}

// I2CBus describes one two-wire bus and its devices.
type I2CBus struct {
	BusConfig `yaml:",inline"`
	Devices   []I2CDevice `yaml:"devices"`
}

// I2CDevice describes one target on a two-wire bus.
type I2CDevice struct {
	Name    string        `yaml:"name"`
	Address uint8         `yaml:"address"`
	Restart *bool         `yaml:"restart,omitempty"`
	Stop    *bool         `yaml:"stop,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given: one SPI and
// one two-wire bus with a single device each.
func Default() *Config {
	return &Config{
		LogLevel:       "warn",
		LogFormat:      "text",
		SampleInterval: 250 * time.Millisecond,
		History:        shared.DefaultHistory,
		Serial: SerialConfig{
			Baud:     serial.DefaultBaud,
			TxBuffer: serial.DefaultTxBufferSize,
			RxBuffer: serial.DefaultRxBufferSize,
		},
		SPI: []SPIBus{{
			BusConfig: BusConfig{Name: "spi0", Capacity: bus.DefaultCapacity, Shutdown: "drain"},
			Devices:   []SPIDevice{{Name: "accel", ClockHz: 1000000, BitOrder: "msb"}},
		}},
		I2C: []I2CBus{{
			BusConfig: BusConfig{Name: "i2c0", Capacity: bus.DefaultCapacity, Shutdown: "drain"},
			Devices:   []I2CDevice{{Name: "thermo", Address: 0x48, Timeout: wire.DefaultTimeout}},
		}},
	}
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = 250 * time.Millisecond
	}
	if c.History == 0 {
		c.History = shared.DefaultHistory
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = serial.DefaultBaud
	}
	if c.Serial.TxBuffer == 0 {
		c.Serial.TxBuffer = serial.DefaultTxBufferSize
	}
	if c.Serial.RxBuffer == 0 {
		c.Serial.RxBuffer = serial.DefaultRxBufferSize
	}
	for i := range c.SPI {
		c.SPI[i].applyDefaults()
		for j := range c.SPI[i].Devices {
			if c.SPI[i].Devices[j].BitOrder == "" {
				c.SPI[i].Devices[j].BitOrder = "msb"
			}
		}
	}
	for i := range c.I2C {
		c.I2C[i].applyDefaults()
		for j := range c.I2C[i].Devices {
			if c.I2C[i].Devices[j].Timeout == 0 {
				c.I2C[i].Devices[j].Timeout = wire.DefaultTimeout
			}
		}
	}
}

func (b *BusConfig) applyDefaults() {
	if b.Capacity == 0 {
		b.Capacity = bus.DefaultCapacity
	}
	if b.Shutdown == "" {
		b.Shutdown = "drain"
	}
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := c.Level(); err != nil {
		result = multierror.Append(result, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("log_format %q: want text or json", c.LogFormat))
	}
	if c.SampleInterval < 0 {
		result = multierror.Append(result, fmt.Errorf("sample_interval %v: must not be negative", c.SampleInterval))
	}
	if c.History < 0 {
		result = multierror.Append(result, fmt.Errorf("history %d: must not be negative", c.History))
	}
	if c.Serial.Baud < 0 || c.Serial.TxBuffer < 0 || c.Serial.RxBuffer < 0 {
		result = multierror.Append(result, fmt.Errorf("serial: baud and buffer sizes must not be negative"))
	}

	names := make(map[string]bool)
	checkName := func(kind, name string) {
		if name == "" {
			result = multierror.Append(result, fmt.Errorf("%s: missing name", kind))
			return
		}
		if names[name] {
			result = multierror.Append(result, fmt.Errorf("%s %q: duplicate name", kind, name))
		}
		names[name] = true
	}

	for _, b := range c.SPI {
		checkName("spi bus", b.Name)
		result = multierror.Append(result, b.validate()...)
		for _, d := range b.Devices {
			checkName("spi device", d.Name)
			if d.Mode > uint8(hal.SPIMode3) {
				result = multierror.Append(result, fmt.Errorf("spi device %q: mode %d: want 0-3", d.Name, d.Mode))
			}
			if _, err := d.bitOrder(); err != nil {
				result = multierror.Append(result, fmt.Errorf("spi device %q: %w", d.Name, err))
			}
		}
	}

	for _, b := range c.I2C {
		checkName("i2c bus", b.Name)
		result = multierror.Append(result, b.validate()...)
		addrs := make(map[uint8]bool)
		for _, d := range b.Devices {
			checkName("i2c device", d.Name)
			if d.Address > 0x7F {
				result = multierror.Append(result, fmt.Errorf("i2c device %q: address 0x%02x: not a 7-bit address", d.Name, d.Address))
			}
			if addrs[d.Address] {
				result = multierror.Append(result, fmt.Errorf("i2c device %q: address 0x%02x: duplicate on bus %q", d.Name, d.Address, b.Name))
			}
			addrs[d.Address] = true
			if d.Timeout < 0 {
				result = multierror.Append(result, fmt.Errorf("i2c device %q: timeout %v: must not be negative", d.Name, d.Timeout))
			}
		}
	}

	return result.ErrorOrNil()
}

func (b *BusConfig) validate() []error {
	var errs []error
	if b.Capacity < 0 {
		errs = append(errs, fmt.Errorf("bus %q: capacity %d: must not be negative", b.Name, b.Capacity))
	}
	if _, err := b.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("bus %q: %w", b.Name, err))
	}
	return errs
}

// Level returns the parsed log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Format returns the parsed log format.
func (c *Config) Format() pkg.LogFormat {
	return pkg.ParseLogFormat(c.LogFormat)
}

// Policy returns the parsed shutdown policy.
func (b *BusConfig) Policy() (bus.ShutdownPolicy, error) {
	switch strings.ToLower(b.Shutdown) {
	case "", "drain":
		return bus.ShutdownDrain, nil
	case "abort":
		return bus.ShutdownAbort, nil
	default:
		return 0, fmt.Errorf("shutdown %q: want drain or abort", b.Shutdown)
	}
}

// Options returns the dispatcher options for the bus.
func (b *BusConfig) Options() []bus.Option {
	policy, _ := b.Policy()
	return []bus.Option{
		bus.WithCapacity(b.Capacity),
		bus.WithShutdownPolicy(policy),
	}
}

// SerialOptions returns the serial multiplexer options.
func (c *Config) SerialOptions() []serial.Option {
	return []serial.Option{
		serial.WithBaud(c.Serial.Baud),
		serial.WithTxBufferSize(c.Serial.TxBuffer),
		serial.WithRxBufferSize(c.Serial.RxBuffer),
	}
}

func (d *SPIDevice) bitOrder() (hal.BitOrder, error) {
	switch strings.ToLower(d.BitOrder) {
	case "", "msb":
		return hal.MSBFirst, nil
	case "lsb":
		return hal.LSBFirst, nil
	default:
		return 0, fmt.Errorf("bit_order %q: want msb or lsb", d.BitOrder)
	}
}

// Config returns the device's transfer configuration. Chip select hooks are
// added by the caller with opts.
func (d *SPIDevice) Config(opts ...spi.ConfigOption) spi.Config {
	order, _ := d.bitOrder()
	settings := hal.SPISettings{
		ClockHz:  d.ClockHz,
		BitOrder: order,
		Mode:     hal.SPIMode(d.Mode),
	}
	if d.Fill != nil {
		opts = append([]spi.ConfigOption{spi.WithFillSymbol(*d.Fill)}, opts...)
	}
	return spi.NewConfig(settings, opts...)
}

// Config returns the target's transfer configuration.
func (d *I2CDevice) Config() wire.Config {
	opts := []wire.ConfigOption{wire.WithTimeout(d.Timeout)}
	if d.Restart != nil {
		opts = append(opts, wire.WithRestart(*d.Restart))
	}
	if d.Stop != nil {
		opts = append(opts, wire.WithStop(*d.Stop))
	}
	return wire.NewConfig(d.Address, opts...)
}
