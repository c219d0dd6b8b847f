// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package device provides SPI peripheral models that can be connected to an
// spisim core.
//
package device

import (
	"github.com/db47h/spisim"
	"periph.io/x/conn/v3/spi"
)

// A Peripheral drives the MISO line of a core.
//
// Step is called exactly once per core tick, before the core is ticked, with
// the line levels the core drives for that tick. It returns the MISO level for
// the same tick.
//
type Peripheral interface {
	Step(l spisim.Lines) (miso bool)
}

// PeripheralFunc adapts a function to the Peripheral interface.
//
type PeripheralFunc func(l spisim.Lines) bool

// Step calls f(l).
//
func (f PeripheralFunc) Step(l spisim.Lines) bool { return f(l) }

// Loopback is a peripheral that wires MOSI back to MISO.
//
type Loopback struct{}

// Step implements Peripheral.
//
func (Loopback) Step(l spisim.Lines) bool { return l.MOSI }

// Idle is the byte shifted out by a ShiftRegister once its response is
// exhausted (a pulled up MISO line).
//
const Idle = 0xff

// ShiftRegister is a generic SPI slave.
//
// It samples MOSI and shifts its response out on the SCLK edges given by its
// mode, and records the bytes received in each chip select frame.
//
type ShiftRegister struct {
	mode spi.Mode
	pol  bool
	pha  bool
	lsb  bool

	resp []byte
	ri   int

	out    byte // byte being shifted out
	obit   int
	primed bool
	ahead  bool // out was fetched from resp at the end of the previous byte
	in     byte
	ibit   int

	prev   spisim.Lines
	cur    []byte
	frames [][]byte
}

// NewShiftRegister returns a new slave using the given SPI mode and response.
// The response bytes are shifted out in order across frames.
//
func NewShiftRegister(mode spi.Mode, response ...byte) *ShiftRegister {
	m := mode &^ (spi.LSBFirst | spi.HalfDuplex | spi.NoCS)
	d := &ShiftRegister{
		mode: mode,
		pol:  m&2 != 0,
		pha:  m&1 != 0,
		lsb:  mode&spi.LSBFirst != 0,
	}
	d.SetResponse(response)
	d.prev.SCLK = d.pol
	return d
}

// SetResponse replaces the response bytes.
//
func (d *ShiftRegister) SetResponse(p []byte) {
	d.resp = append(d.resp[:0], p...)
	d.ri = 0
	d.ahead = false
}

// Mode returns the slave mode.
//
func (d *ShiftRegister) Mode() spi.Mode { return d.mode }

func (d *ShiftRegister) next() byte {
	if d.ri >= len(d.resp) {
		return Idle
	}
	b := d.resp[d.ri]
	d.ri++
	return b
}

func (d *ShiftRegister) bit() bool {
	if d.lsb {
		return d.out&1 != 0
	}
	return d.out&0x80 != 0
}

func (d *ShiftRegister) sample(v bool) {
	if d.lsb {
		d.in >>= 1
		if v {
			d.in |= 0x80
		}
	} else {
		d.in <<= 1
		if v {
			d.in |= 1
		}
	}
	d.ibit++
	if d.ibit == 8 {
		d.cur = append(d.cur, d.in)
		d.in, d.ibit = 0, 0
	}
}

func (d *ShiftRegister) shift() {
	if !d.primed {
		d.primed = true
		return
	}
	if d.lsb {
		d.out >>= 1
	} else {
		d.out <<= 1
	}
	d.obit++
	d.ahead = false
	if d.obit == 8 {
		d.ahead = d.ri < len(d.resp)
		d.out, d.obit = d.next(), 0
	}
}

// Step implements Peripheral.
//
func (d *ShiftRegister) Step(l spisim.Lines) bool {
	switch {
	case l.CS && !d.prev.CS:
		d.out, d.obit = d.next(), 0
		d.in, d.ibit = 0, 0
		d.primed = !d.pha
		d.ahead = false
		d.cur = nil
	case !l.CS && d.prev.CS:
		d.frames = append(d.frames, d.cur)
		d.cur = nil
		// the frame ended before the prefetched byte was shifted out.
		if d.ahead {
			d.ri--
			d.ahead = false
		}
	}
	if l.CS && l.SCLK != d.prev.SCLK {
		leading := l.SCLK != d.pol
		if leading != d.pha {
			d.sample(l.MOSI)
		} else {
			d.shift()
		}
	}
	d.prev = l
	return l.CS && d.bit()
}

// Frames returns the bytes received in each completed chip select frame.
//
func (d *ShiftRegister) Frames() [][]byte {
	return d.frames
}

// Received returns all the bytes received so far, including the ones of a
// frame in progress.
//
func (d *ShiftRegister) Received() []byte {
	var r []byte
	for _, f := range d.frames {
		r = append(r, f...)
	}
	return append(r, d.cur...)
}
