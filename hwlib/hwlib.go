// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of parts for building boards around an
// spisim core: I/O pins, glue logic, flip-flops, the SPI controller itself and
// SPI peripherals.
//
package hwlib

import "github.com/db47h/spisim/circuit"

// common pin names
const (
	pA   = "a"
	pB   = "b"
	pIn  = "in"
	pOut = "out"
)

// bus returns the pin names of buses of the given width, in order.
func bus(bits int, names ...string) []string {
	b := make([]string, 0, len(names)*bits)
	for _, n := range names {
		for i := 0; i < bits; i++ {
			b = append(b, circuit.BusPinName(n, i))
		}
	}
	return b
}
