// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package scenario loads SPI transfer scenarios from YAML files.
//
// A scenario describes a simulated port, the peripheral connected to it and a
// list of transfers:
//
//	name: read id
//	sysclk: 16MHz
//	frequency: 1MHz
//	mode: 0
//	lsbFirst: false
//	command: 0x9f
//	device:
//	  kind: shift-register
//	  response: [0xef, 0x40, 0x18]
//	transfers:
//	  - write: [0, 0, 0]
//
package scenario

import (
	"os"

	"github.com/db47h/spisim/bus"
	"github.com/db47h/spisim/device"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Device kinds.
const (
	Loopback      = "loopback"
	ShiftRegister = "shift-register"
)

// Defaults for unset scenario fields.
const (
	DefaultSysclk    = "16MHz"
	DefaultFrequency = "1MHz"
)

// Device describes the peripheral connected to the port.
//
type Device struct {
	Kind     string `yaml:"kind"`
	Response []byte `yaml:"response"`
	// Mode of the peripheral, defaults to the scenario mode.
	Mode *int `yaml:"mode"`
}

// Transfer is a single SPI packet. Write is shifted out; if it is empty,
// Read zero bytes are written. Consecutive transfers with KeepCS set share
// the chip select frame of the transfer that follows them.
//
type Transfer struct {
	Write  []byte `yaml:"write"`
	Read   int    `yaml:"read"`
	KeepCS bool   `yaml:"keepCS"`
}

func (t *Transfer) len() int {
	if len(t.Write) > 0 {
		return len(t.Write)
	}
	return t.Read
}

// Scenario is a parsed scenario file.
//
type Scenario struct {
	Name       string     `yaml:"name"`
	Sysclk     string     `yaml:"sysclk"`
	Frequency  string     `yaml:"frequency"`
	Mode       int        `yaml:"mode"`
	LSBFirst   bool       `yaml:"lsbFirst"`
	Command    *uint8     `yaml:"command"`
	FIFODepth  int        `yaml:"fifoDepth"`
	TickBudget int        `yaml:"tickBudget"`
	Device     Device     `yaml:"device"`
	Transfers  []Transfer `yaml:"transfers"`

	sysclk physic.Frequency
	freq   physic.Frequency
}

// Load reads and parses the scenario file at path.
//
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "scenario")
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

// Parse parses and validates a scenario.
//
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "scenario: parse")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func checkMode(m int) error {
	if m < 0 || m > 3 {
		return errors.Errorf("scenario: invalid mode %d", m)
	}
	return nil
}

func (s *Scenario) validate() error {
	if s.Sysclk == "" {
		s.Sysclk = DefaultSysclk
	}
	if s.Frequency == "" {
		s.Frequency = DefaultFrequency
	}
	if err := s.sysclk.Set(s.Sysclk); err != nil {
		return errors.Wrap(err, "scenario: sysclk")
	}
	if err := s.freq.Set(s.Frequency); err != nil {
		return errors.Wrap(err, "scenario: frequency")
	}
	if err := checkMode(s.Mode); err != nil {
		return err
	}
	if s.Device.Mode != nil {
		if err := checkMode(*s.Device.Mode); err != nil {
			return errors.Wrap(err, "device")
		}
	}
	switch s.Device.Kind {
	case "", Loopback:
		s.Device.Kind = Loopback
		if len(s.Device.Response) > 0 {
			return errors.New("scenario: loopback device does not take a response")
		}
	case ShiftRegister:
	default:
		return errors.Errorf("scenario: unknown device kind %q", s.Device.Kind)
	}
	if s.FIFODepth < 0 {
		return errors.Errorf("scenario: invalid FIFO depth %d", s.FIFODepth)
	}
	for i := range s.Transfers {
		t := &s.Transfers[i]
		if t.Read < 0 || len(t.Write) > 0 && t.Read != 0 && t.Read != len(t.Write) {
			return errors.Errorf("scenario: transfer %d: read length %d does not match write length %d", i, t.Read, len(t.Write))
		}
	}
	return nil
}

// SPIMode returns the SPI mode of the controller.
//
func (s *Scenario) SPIMode() spi.Mode {
	m := spi.Mode(s.Mode)
	if s.LSBFirst {
		m |= spi.LSBFirst
	}
	return m
}

// SystemClock returns the core clock frequency.
//
func (s *Scenario) SystemClock() physic.Frequency { return s.sysclk }

// SCLK returns the requested SCLK frequency.
//
func (s *Scenario) SCLK() physic.Frequency { return s.freq }

// Peripheral returns a new peripheral as described by the scenario.
//
func (s *Scenario) Peripheral() device.Peripheral {
	if s.Device.Kind != ShiftRegister {
		return device.Loopback{}
	}
	m := s.SPIMode()
	if s.Device.Mode != nil {
		m = spi.Mode(*s.Device.Mode) | m&spi.LSBFirst
	}
	return device.NewShiftRegister(m, s.Device.Response...)
}

// Options returns the port options set by the scenario.
//
func (s *Scenario) Options() []bus.Option {
	var opts []bus.Option
	if s.Command != nil {
		opts = append(opts, bus.WithCommand(*s.Command))
	}
	if s.FIFODepth > 0 {
		opts = append(opts, bus.WithFIFODepth(s.FIFODepth))
	}
	if s.TickBudget > 0 {
		opts = append(opts, bus.WithTickBudget(s.TickBudget))
	}
	return opts
}

// Connect creates a port for the scenario, connected to dev, and returns a
// connection at the scenario frequency and mode. Extra options are applied
// after the scenario ones.
//
func (s *Scenario) Connect(dev device.Peripheral, opts ...bus.Option) (*bus.Port, spi.Conn, error) {
	name := s.Name
	if name == "" {
		name = "spisim"
	}
	p := bus.NewPort(name, s.sysclk, dev, append(s.Options(), opts...)...)
	c, err := p.Connect(s.freq, s.SPIMode(), 8)
	if err != nil {
		return nil, nil, err
	}
	return p, c, nil
}

// Run runs all transfers on c in a single call to TxPackets and returns the
// bytes read by each transfer.
//
func (s *Scenario) Run(c spi.Conn) ([][]byte, error) {
	pkts := make([]spi.Packet, len(s.Transfers))
	r := make([][]byte, len(s.Transfers))
	for i := range s.Transfers {
		t := &s.Transfers[i]
		r[i] = make([]byte, t.len())
		pkts[i] = spi.Packet{W: t.Write, R: r[i], KeepCS: t.KeepCS}
	}
	if err := c.TxPackets(pkts); err != nil {
		return nil, err
	}
	return r, nil
}
