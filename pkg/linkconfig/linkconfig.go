// Package linkconfig loads the immutable connection configuration
// spec.md §3 describes from an INI file, the way the teacher's EDS
// parser (pkg/od/parser_v1.go) loads object dictionary entries with
// gopkg.in/ini.v1 — generalized here from "object dictionary section per
// index" to a single [link] section of connection parameters.
package linkconfig

import (
	"fmt"
	"time"

	"github.com/oss-datalink/gocanlink/pkg/frame"
	"gopkg.in/ini.v1"
)

// Role selects which side of the handshake a connection plays.
type Role int

const (
	Transmitter Role = iota
	Receiver
)

// Defaults match spec.md §6's configuration surface.
const (
	DefaultRetransmissions = 3
	DefaultTimeout         = 3 * time.Second
	MaxDevicePathLen       = 49
)

// Config is the immutable-after-open connection configuration.
type Config struct {
	Device            string
	Role              Role
	BaudRate          int
	Retransmissions   int
	Timeout           time.Duration
	MaxPayloadSize    int
	BCC1ErrorPercent  int
	BCC2ErrorPercent  int
	PropagationDelay  time.Duration
}

// Validate checks the bounds spec.md §3/§6 place on configuration fields.
func (c Config) Validate() error {
	if len(c.Device) == 0 || len(c.Device) > MaxDevicePathLen {
		return fmt.Errorf("linkconfig: device path length must be in (0,%d]", MaxDevicePathLen)
	}
	if c.Retransmissions < 0 {
		return fmt.Errorf("linkconfig: retransmissions must be >= 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("linkconfig: timeout must be positive")
	}
	if c.MaxPayloadSize <= 0 || c.MaxPayloadSize > frame.MaxPayloadSize {
		return fmt.Errorf("linkconfig: max payload size must be in (0,%d]", frame.MaxPayloadSize)
	}
	return nil
}

// Default returns a Config with spec.md §6 defaults for everything except
// Device/Role/BaudRate, which callers must always supply.
func Default(device string, role Role, baudRate int) Config {
	return Config{
		Device:          device,
		Role:            role,
		BaudRate:        baudRate,
		Retransmissions: DefaultRetransmissions,
		Timeout:         DefaultTimeout,
		MaxPayloadSize:  frame.MaxPayloadSize,
	}
}

// Load reads a [link] section from an INI file at path, the way the
// teacher's EDS parser reads an object dictionary section, overlaying
// onto Default's values. Keys: device, role (tx|rx), baud, retransmissions,
// timeout_s, max_payload, bcc1_error_pct, bcc2_error_pct, propagation_ms.
func Load(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("linkconfig: load %s: %w", path, err)
	}
	section := f.Section("link")

	role := Transmitter
	if section.Key("role").String() == "rx" {
		role = Receiver
	}

	cfg := Default(section.Key("device").String(), role, section.Key("baud").MustInt(9600))
	cfg.Retransmissions = section.Key("retransmissions").MustInt(DefaultRetransmissions)
	cfg.Timeout = time.Duration(section.Key("timeout_s").MustFloat64(DefaultTimeout.Seconds()) * float64(time.Second))
	cfg.MaxPayloadSize = section.Key("max_payload").MustInt(frame.MaxPayloadSize)
	cfg.BCC1ErrorPercent = section.Key("bcc1_error_pct").MustInt(0)
	cfg.BCC2ErrorPercent = section.Key("bcc2_error_pct").MustInt(0)
	cfg.PropagationDelay = time.Duration(section.Key("propagation_ms").MustInt(0)) * time.Millisecond

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
