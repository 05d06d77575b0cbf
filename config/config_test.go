package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/softbus/bus"
	"github.com/ardnew/softbus/hal"
	"github.com/ardnew/softbus/pkg"
	"github.com/ardnew/softbus/serial"
	"github.com/ardnew/softbus/spi"
	"github.com/ardnew/softbus/wire"
)

const sample = `
log_level: debug
log_format: json
sample_interval: 50ms
serial:
  baud: 9600
spi:
  - name: spi0
    capacity: 8
    shutdown: abort
    devices:
      - name: accel
        clock_hz: 2000000
        mode: 3
        bit_order: lsb
        fill: 0x00
i2c:
  - name: i2c0
    devices:
      - name: thermo
        address: 0x48
        restart: false
        timeout: 20ms
      - name: eeprom
        address: 0x50
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", level)
	}
	if cfg.Format() != pkg.LogFormatJSON {
		t.Errorf("Format() = %v, want json", cfg.Format())
	}
	if cfg.SampleInterval != 50*time.Millisecond {
		t.Errorf("SampleInterval = %v, want 50ms", cfg.SampleInterval)
	}
	if cfg.Serial.Baud != 9600 || cfg.Serial.TxBuffer != serial.DefaultTxBufferSize {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if len(cfg.SerialOptions()) != 3 {
		t.Errorf("SerialOptions() returned %d options", len(cfg.SerialOptions()))
	}

	b := cfg.SPI[0]
	if policy, _ := b.Policy(); policy != bus.ShutdownAbort || b.Capacity != 8 {
		t.Errorf("spi0 policy=%v capacity=%d, want abort 8", policy, b.Capacity)
	}
	if len(b.Options()) != 2 {
		t.Errorf("Options() returned %d options", len(b.Options()))
	}
	sc := b.Devices[0].Config()
	want := hal.SPISettings{ClockHz: 2000000, BitOrder: hal.LSBFirst, Mode: hal.SPIMode3}
	if sc.Settings != want || sc.FillSymbol != 0x00 {
		t.Errorf("accel Config() = %+v, want %+v fill 0x00", sc, want)
	}

	i2c := cfg.I2C[0]
	if i2c.Capacity != bus.DefaultCapacity || i2c.Shutdown != "drain" {
		t.Errorf("i2c0 defaults = %+v", i2c.BusConfig)
	}
	thermo := i2c.Devices[0].Config()
	if thermo.Address != 0x48 || thermo.Restart || !thermo.Stop || thermo.Timeout != 20*time.Millisecond {
		t.Errorf("thermo Config() = %+v", thermo)
	}
	eeprom := i2c.Devices[1].Config()
	if !eeprom.Restart || eeprom.Timeout != wire.DefaultTimeout {
		t.Errorf("eeprom Config() = %+v", eeprom)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if level, _ := cfg.Level(); level != slog.LevelWarn {
		t.Errorf("Level() = %v, want warn", level)
	}
	if cfg.Serial.Baud != serial.DefaultBaud || cfg.Serial.RxBuffer != serial.DefaultRxBufferSize {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if len(cfg.SPI) != 0 || len(cfg.I2C) != 0 {
		t.Error("empty config gained buses")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if c := cfg.SPI[0].Devices[0].Config(); c.FillSymbol != spi.DefaultFillSymbol {
		t.Errorf("default fill = %#x, want %#x", c.FillSymbol, spi.DefaultFillSymbol)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	data := `
log_level: loud
log_format: xml
spi:
  - name: bus
    shutdown: later
    devices:
      - name: bus
        mode: 4
        bit_order: middle
i2c:
  - name: i2c0
    devices:
      - name: a
        address: 0x90
      - name: b
        address: 0x90
`
	_, err := Parse([]byte(data))
	if err == nil {
		t.Fatal("Parse() error = nil, want validation errors")
	}
	for _, want := range []string{
		`log_level "loud"`,
		`log_format "xml"`,
		`shutdown "later"`,
		`spi device "bus": duplicate name`,
		`mode 4`,
		`bit_order "middle"`,
		`not a 7-bit address`,
		`duplicate on bus "i2c0"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.I2C[0].Devices) != 2 {
		t.Errorf("loaded %d i2c devices, want 2", len(cfg.I2C[0].Devices))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file error = nil")
	}
	if _, err := Parse([]byte("spi: [")); err == nil {
		t.Error("Parse() of malformed YAML error = nil")
	}
}
