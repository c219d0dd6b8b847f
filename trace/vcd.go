// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package trace records the signals of an spisim core as a Value Change Dump
// (IEEE 1364 VCD) waveform that can be viewed in tools like GTKWave.
//
package trace

import (
	"bufio"
	"io"
	"math/bits"
	"strconv"

	"github.com/db47h/spisim"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

type signal struct {
	name  string
	width int
	value func(in *spisim.Inputs, out *spisim.Outputs) uint64
}

func bit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

var signals = [...]signal{
	{"state", 2, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return uint64(o.State) }},
	{"sclk", 1, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return bit(o.SCLK) }},
	{"mosi", 1, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return bit(o.MOSI) }},
	{"miso", 1, func(i *spisim.Inputs, _ *spisim.Outputs) uint64 { return bit(i.MISO) }},
	{"cs", 1, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return bit(o.CS) }},
	{"rreq", 1, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return bit(o.ReadRequest) }},
	{"shift", 1, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return bit(o.Shift) }},
	{"done", 1, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return bit(o.Done) }},
	{"rx", 64, func(_ *spisim.Inputs, o *spisim.Outputs) uint64 { return o.RxData }},
}

// identifier codes are single printable characters starting at '!'.
func code(i int) byte {
	return byte('!' + i)
}

// Writer writes a VCD file. Write errors are sticky and reported by Flush.
//
type Writer struct {
	w      *bufio.Writer
	sysclk physic.Frequency
	tick   uint64
	vals   [len(signals)]uint64
	header bool
	err    error
}

// NewWriter returns a new VCD writer for a core ticked at sysclk. Timestamps
// are in picoseconds, computed from the tick count so that rounding errors do
// not accumulate. A sysclk of 0 or less defaults to 1GHz.
//
func NewWriter(w io.Writer, sysclk physic.Frequency) *Writer {
	if sysclk <= 0 {
		sysclk = physic.GigaHertz
	}
	return &Writer{w: bufio.NewWriter(w), sysclk: sysclk}
}

// tick t is at t * 1e12 / (sysclk / Hertz) picoseconds.
const psPerSecond = 1e12 * uint64(physic.Hertz)

// stamp returns the time of tick t in picoseconds, rounded down.
func (v *Writer) stamp(t uint64) string {
	hi, lo := bits.Mul64(t, psPerSecond)
	ps, _ := bits.Div64(hi, lo, uint64(v.sysclk))
	return strconv.FormatUint(ps, 10)
}

func (v *Writer) print(s ...string) {
	if v.err != nil {
		return
	}
	for _, s := range s {
		if _, v.err = v.w.WriteString(s); v.err != nil {
			return
		}
	}
}

func (v *Writer) writeHeader() {
	v.print("$version spisim $end\n",
		"$timescale 1ps $end\n",
		"$scope module spi $end\n")
	for i := range signals {
		s := &signals[i]
		v.print("$var wire ", strconv.Itoa(s.width), " ", string(code(i)), " ", s.name)
		if s.width > 1 {
			v.print(" [", strconv.Itoa(s.width-1), ":0]")
		}
		v.print(" $end\n")
	}
	v.print("$upscope $end\n",
		"$enddefinitions $end\n")
}

func (v *Writer) value(i int, x uint64) {
	if signals[i].width == 1 {
		v.print(strconv.FormatUint(x, 10), string(code(i)), "\n")
		return
	}
	v.print("b", strconv.FormatUint(x, 2), " ", string(code(i)), "\n")
}

// Trace records the signals of one core tick. Its signature matches
// bus.Tracer.
//
func (v *Writer) Trace(in spisim.Inputs, out spisim.Outputs) {
	t := v.tick
	v.tick++
	if !v.header {
		v.header = true
		v.writeHeader()
		v.print("#0\n$dumpvars\n")
		for i := range signals {
			v.vals[i] = signals[i].value(&in, &out)
			v.value(i, v.vals[i])
		}
		v.print("$end\n")
		return
	}
	dated := false
	for i := range signals {
		x := signals[i].value(&in, &out)
		if x == v.vals[i] {
			continue
		}
		if !dated {
			dated = true
			v.print("#", v.stamp(t), "\n")
		}
		v.vals[i] = x
		v.value(i, x)
	}
}

// Ticks returns the number of ticks recorded so far.
//
func (v *Writer) Ticks() uint64 {
	return v.tick
}

// Flush writes the final timestamp and flushes buffered data to the
// underlying writer.
//
func (v *Writer) Flush() error {
	if v.header {
		v.print("#", v.stamp(v.tick), "\n")
	}
	if v.err == nil {
		v.err = v.w.Flush()
	}
	return errors.Wrap(v.err, "trace: write VCD")
}
