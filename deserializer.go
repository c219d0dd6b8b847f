// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim

// Deserializer is the serial to parallel receive shift register.
//
// It is a 64 bits rolling window: it is shifted on every shift tick and never
// cleared between bytes. Consumers are expected to read it at the right byte
// boundary.
//
type Deserializer struct {
	data uint64
}

// Word returns the accumulated bits.
//
func (d Deserializer) Word() uint64 {
	return d.data
}

// Next returns the deserializer state for the next tick.
//
// MSB first, bits enter at bit 0 and move up. LSB first, bits enter at bit 63
// and move down. The oldest bit is dropped.
//
func (d Deserializer) Next(shift, lsbFirst, in bool) Deserializer {
	if !shift {
		return d
	}
	if lsbFirst {
		d.data >>= 1
		if in {
			d.data |= 1 << 63
		}
	} else {
		d.data <<= 1
		if in {
			d.data |= 1
		}
	}
	return d
}

// LastByte extracts the most recently received byte from an accumulator value.
//
func LastByte(word uint64, lsbFirst bool) byte {
	if lsbFirst {
		return byte(word >> 56)
	}
	return byte(word)
}
