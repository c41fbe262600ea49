package modbus

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProtocolType distinguishes which wire protocol a Field or BuilderRequest targets, since the
// batch splitter groups fields into requests separately per protocol.
type ProtocolType uint8

const (
	// protocolAny is the zero value: "use whatever protocol the enclosing Builder/request uses".
	protocolAny ProtocolType = iota
	// ProtocolTCP is Modbus TCP (MBAP framing).
	ProtocolTCP
	// ProtocolRTU is Modbus RTU (serial line framing).
	ProtocolRTU
)

// String returns the lowercase wire name of the protocol.
func (p ProtocolType) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolRTU:
		return "rtu"
	default:
		return "any"
	}
}

// UnmarshalJSON converts raw bytes from JSON to ProtocolType
func (p *ProtocolType) UnmarshalJSON(raw []byte) error {
	if len(raw) < 3 {
		return fmt.Errorf("protocol value too short, given: '%s'", raw)
	}
	if raw[0] != '"' {
		return fmt.Errorf("protocol value does not start with quote mark, given: '%s'", raw)
	}
	e := len(raw) - 1
	if raw[e] != '"' {
		return fmt.Errorf("protocol value does not end with quote mark, given: '%s'", raw)
	}

	switch strings.ToLower(string(raw[1:e])) {
	case "tcp":
		*p = ProtocolTCP
	case "rtu":
		*p = ProtocolRTU
	default:
		return fmt.Errorf("unknown protocol value, given: '%s'", raw)
	}
	return nil
}

// Duration is time.Duration with JSON (de)serialization as a Go duration string (e.g. "1s500ms")
// instead of a raw integer, so Field/BuilderDefaults configuration files stay human-readable.
type Duration time.Duration

// MarshalJSON converts Duration to its Go duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON converts raw bytes from JSON to Duration. Accepts either a duration string
// ("1s") or a plain integer of nanoseconds, mirroring encoding/json's own time.Duration leniency.
func (d *Duration) UnmarshalJSON(raw []byte) error {
	if len(raw) > 0 && raw[0] != '"' {
		ns, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("could not parse Duration as int, err: %w", err)
		}
		*d = Duration(ns)
		return nil
	}
	if len(raw) < 3 {
		return fmt.Errorf("duration value too short, given: '%s'", raw)
	}
	e := len(raw) - 1
	if raw[e] != '"' {
		return fmt.Errorf("duration value does not end with quote mark, given: '%s'", raw)
	}

	parsed, err := time.ParseDuration(string(raw[1:e]))
	if err != nil {
		return fmt.Errorf("could not parse Duration from string, err: %w", err)
	}
	*d = Duration(parsed)
	return nil
}
