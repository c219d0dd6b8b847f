// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/spisim/circuit"
)

// unary and binary gates update their output on every step: they add one step
// of propagation delay.

func unary(name string, f func(bool) bool) circuit.NewPartFn {
	return (&circuit.PartSpec{
		Name:    name,
		Inputs:  []string{pIn},
		Outputs: []string{pOut},
		Mount: func(s *circuit.Socket) []circuit.Component {
			in, out := s.Pin(pIn), s.Pin(pOut)
			return []circuit.Component{
				func(c *circuit.Circuit) { c.Set(out, f(c.Get(in))) },
			}
		},
	}).NewPart
}

func binary(name string, f func(a, b bool) bool) circuit.NewPartFn {
	return (&circuit.PartSpec{
		Name:    name,
		Inputs:  []string{pA, pB},
		Outputs: []string{pOut},
		Mount: func(s *circuit.Socket) []circuit.Component {
			a, b, out := s.Pin(pA), s.Pin(pB), s.Pin(pOut)
			return []circuit.Component{
				func(c *circuit.Circuit) { c.Set(out, f(c.Get(a), c.Get(b))) },
			}
		},
	}).NewPart
}

var (
	not = unary("NOT", func(in bool) bool { return !in })
	or  = binary("OR", func(a, b bool) bool { return a || b })
)

// Not returns a NOT gate. Typical use is converting between active low and
// active high select lines.
//
//	Inputs: in
//	Outputs: out
//	Function: out = !in
//
func Not(w string) circuit.Part { return not(w) }

// Or returns a OR gate. With active low inputs, it works as an AND gate:
// a chip select decoder for a shared bus is built with Or gates on the ssn
// line, and CS gated MISO outputs are merged with an Or.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a || b
//
func Or(w string) circuit.Part { return or(w) }
