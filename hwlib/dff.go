// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/spisim/circuit"

var dff = &circuit.PartSpec{
	Name:    "DFF",
	Inputs:  []string{pIn},
	Outputs: []string{pOut},
	Mount: func(s *circuit.Socket) []circuit.Component {
		in, out := s.Pin(pIn), s.Pin(pOut)
		var q bool
		return []circuit.Component{
			func(c *circuit.Circuit) {
				if c.AtTick() {
					q = c.Get(in)
				}
				c.Set(out, q)
			},
		}
	},
}

// DFF returns a data flip flop clocked on the raising edge of Clk. Placed on
// the miso line, it acts as an input synchronizer that delays MISO by one
// core tick, which is tolerated for clock divisors of 1 and above.
//
//	Inputs: in
//	Outputs: out
//	Function: out(t) = in(t-1) // where t is the current clock cycle.
//
func DFF(w string) circuit.Part {
	return dff.NewPart(w)
}
