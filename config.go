package df1comm

import (
	"fmt"
	"os"

	"github.com/robertlarue/DF1Comm/serial"
	"gopkg.in/yaml.v3"
)

// Protocol selects between the DF1 point-to-point framing and the DH485
// token-passing multi-drop variant. Both share the checksum/framing layer
// (§4.A, §4.B); only the PCCC header shape and link-layer dispatch differ.
type Protocol int

const (
	ProtocolDF1 Protocol = iota
	ProtocolDH485
)

func (p Protocol) String() string {
	if p == ProtocolDH485 {
		return "DH485"
	}
	return "DF1"
}

// ChecksumKind selects the trailing checksum algorithm (§4.A).
type ChecksumKind int

const (
	ChecksumBCC ChecksumKind = iota
	ChecksumCRC
)

func (k ChecksumKind) String() string {
	if k == ChecksumCRC {
		return "CRC"
	}
	return "BCC"
}

// Parity is re-exported from the serial package so callers configuring a
// Client don't need to import it directly.
type Parity = serial.Parity

const (
	ParityNone = serial.ParityNone
	ParityEven = serial.ParityEven
	ParityOdd  = serial.ParityOdd
)

// Config is the process-wide, caller-mutable configuration described in
// spec.md §3 and §6. It must not be mutated while a transaction is in
// flight. Client.Reconfigure closes the port first when the port, baud or
// parity changes; it does not check for or wait on an in-flight transaction.
type Config struct {
	Port       string
	Baud       int
	Parity     Parity
	Protocol   Protocol
	Checksum   ChecksumKind
	MyNode     byte
	TargetNode byte
	Async      bool
}

// DefaultConfig returns the settings a fresh Client starts from: 9600 baud,
// no parity, DF1 protocol, CRC checksum, node 0 talking to node 1.
func DefaultConfig() Config {
	return Config{
		Port:       "",
		Baud:       9600,
		Parity:     ParityNone,
		Protocol:   ProtocolDF1,
		Checksum:   ChecksumCRC,
		MyNode:     0,
		TargetNode: 1,
		Async:      false,
	}
}

// yamlConfig mirrors Config with string-typed enum fields, the way
// src/deviceid.go in the pack loads tocalls.yaml into a parallel shape
// before converting it into the types the rest of the program uses.
type yamlConfig struct {
	Port       string `yaml:"port"`
	Baud       int    `yaml:"baud"`
	Parity     string `yaml:"parity"`
	Protocol   string `yaml:"protocol"`
	Checksum   string `yaml:"checksum"`
	MyNode     int    `yaml:"my_node"`
	TargetNode int    `yaml:"target_node"`
	Async      bool   `yaml:"async_mode"`
}

// LoadConfig reads a YAML configuration file of the form documented in
// §6's "Configuration surface" table.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("df1comm: reading config %s: %w", path, err)
	}
	var y yamlConfig
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return Config{}, fmt.Errorf("df1comm: parsing config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if y.Port != "" {
		cfg.Port = y.Port
	}
	if y.Baud != 0 {
		cfg.Baud = y.Baud
	}
	if y.MyNode != 0 {
		cfg.MyNode = byte(y.MyNode)
	}
	if y.TargetNode != 0 {
		cfg.TargetNode = byte(y.TargetNode)
	}
	cfg.Async = y.Async

	switch y.Parity {
	case "Even":
		cfg.Parity = ParityEven
	case "Odd":
		cfg.Parity = ParityOdd
	}
	switch y.Protocol {
	case "DH485":
		cfg.Protocol = ProtocolDH485
	}
	switch y.Checksum {
	case "BCC":
		cfg.Checksum = ChecksumBCC
	}
	return cfg, nil
}
