// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim

// Serializer is the parallel to serial transmit shift register.
//
// A byte is loaded on the tick following a read request, then shifted out one
// bit per shift tick. The zero value is the reset state.
//
type Serializer struct {
	data    uint8
	left    uint8 // bits left to shift
	pending bool  // read request issued on the previous tick
	cmd     bool  // the pending load takes the command byte
}

// Wait returns the backpressure signal. It is held from the read request until
// the last bit of the byte starts shifting out, so that the next request is
// issued on the same tick as the last shift.
//
func (s Serializer) Wait() bool {
	return s.pending || s.left > 1
}

// Loading returns true on the tick where a requested byte is being loaded.
//
func (s Serializer) Loading() bool {
	return s.pending
}

// Left returns the number of bits that have not been shifted out yet.
//
func (s Serializer) Left() int {
	return int(s.left)
}

// Out returns the bit currently driven on MOSI.
//
func (s Serializer) Out(lsbFirst bool) bool {
	if lsbFirst {
		return s.data&1 != 0
	}
	return s.data&0x80 != 0
}

// SerializerIn holds the serializer inputs for a tick.
//
type SerializerIn struct {
	Request  bool  // read request on this tick
	Command  bool  // the requested byte is the command byte
	Shift    bool  // shift tick
	LSBFirst bool  // bit order
	Cmd      uint8 // override command byte
	Queue    uint8 // queue data
}

// Next returns the serializer state for the next tick.
//
// A load has priority over a shift. The byte source for a pending load was
// selected when the request was issued.
//
func (s Serializer) Next(in SerializerIn) Serializer {
	switch {
	case s.pending:
		if s.cmd {
			s.data = in.Cmd
		} else {
			s.data = in.Queue
		}
		s.left = 8
	case in.Shift && s.left > 0:
		if in.LSBFirst {
			s.data >>= 1
		} else {
			s.data <<= 1
		}
		s.left--
	}
	s.pending, s.cmd = in.Request, in.Request && in.Command
	return s
}
