// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/spi"
)

// Config is the static configuration of the core, as supplied by an external
// register file. It is sampled on every tick and is expected to change only
// between transfers.
//
type Config struct {
	Divisor  uint8 // SCLK period is Divisor+1 ticks
	Polarity bool  // CPOL: SCLK idle level
	Phase    bool  // CPHA: SCLK leads the data by half a period
	LSBFirst bool  // bit order
	Override bool  // the first byte of a frame is Command
	Command  uint8 // override command byte
}

// ConfigFromMode returns a Config with polarity, phase and bit order set from
// an SPI mode.
//
// spi.HalfDuplex and spi.NoCS are not supported: the core always drives MOSI
// and MISO separately and always frames transfers with chip select.
//
func ConfigFromMode(m spi.Mode) (Config, error) {
	var c Config
	if m&spi.HalfDuplex != 0 {
		return c, errors.New("spisim: half duplex mode not supported")
	}
	if m&spi.NoCS != 0 {
		return c, errors.New("spisim: chip select cannot be disabled")
	}
	c.LSBFirst = m&spi.LSBFirst != 0
	m &^= spi.LSBFirst
	if m < spi.Mode0 || m > spi.Mode3 {
		return c, errors.Errorf("spisim: invalid spi mode %#x", int(m))
	}
	c.Phase = m&1 != 0
	c.Polarity = m&2 != 0
	return c, nil
}

// Mode returns the SPI mode matching the polarity, phase and bit order of c.
//
func (c Config) Mode() spi.Mode {
	m := spi.Mode0
	if c.Phase {
		m |= 1
	}
	if c.Polarity {
		m |= 2
	}
	if c.LSBFirst {
		m |= spi.LSBFirst
	}
	return m
}
