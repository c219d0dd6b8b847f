// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/spisim/circuit"
)

// Uint64 returns the value of a bus. pins[0] is the least significant bit.
//
func Uint64(c *circuit.Circuit, pins []int) uint64 {
	var v uint64
	for i, p := range pins {
		if c.Get(p) {
			v |= 1 << uint(i)
		}
	}
	return v
}

// SetUint64 drives a bus with the low len(pins) bits of v.
//
func SetUint64(c *circuit.Circuit, pins []int, v uint64) {
	for i, p := range pins {
		c.Set(p, v>>uint(i)&1 != 0)
	}
}

// InputN returns a part driving a bus of the given width with the value
// returned by f. f is called on every simulation step, it should be cheap.
//
//	Outputs: out[bits]
//	Function: out = f()
//
func InputN(bits int, f func() uint64) circuit.NewPartFn {
	return (&circuit.PartSpec{
		Name:    "In" + strconv.Itoa(bits),
		Outputs: bus(bits, pOut),
		Mount: func(s *circuit.Socket) []circuit.Component {
			pins := s.Bus(pOut, bits)
			return []circuit.Component{
				func(c *circuit.Circuit) { SetUint64(c, pins, f()) },
			}
		},
	}).NewPart
}

// OutputN returns a probe that calls f with the value of a bus of the given
// width on every simulation step.
//
//	Inputs: in[bits]
//	Function: f(in)
//
func OutputN(bits int, f func(uint64)) circuit.NewPartFn {
	return (&circuit.PartSpec{
		Name:   "Out" + strconv.Itoa(bits),
		Inputs: bus(bits, pIn),
		Mount: func(s *circuit.Socket) []circuit.Component {
			pins := s.Bus(pIn, bits)
			return []circuit.Component{
				func(c *circuit.Circuit) { f(Uint64(c, pins)) },
			}
		},
	}).NewPart
}

// Input is the single pin version of InputN.
//
//	Outputs: out
//
func Input(f func() bool) circuit.NewPartFn {
	return (&circuit.PartSpec{
		Name:    "In",
		Outputs: []string{pOut},
		Mount: func(s *circuit.Socket) []circuit.Component {
			out := s.Pin(pOut)
			return []circuit.Component{
				func(c *circuit.Circuit) { c.Set(out, f()) },
			}
		},
	}).NewPart
}

// Output is the single pin version of OutputN.
//
//	Inputs: in
//
func Output(f func(bool)) circuit.NewPartFn {
	return (&circuit.PartSpec{
		Name:   "Out",
		Inputs: []string{pIn},
		Mount: func(s *circuit.Socket) []circuit.Component {
			in := s.Pin(pIn)
			return []circuit.Component{
				func(c *circuit.Circuit) { f(c.Get(in)) },
			}
		},
	}).NewPart
}
