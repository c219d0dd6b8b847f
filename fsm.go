// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim

import "strconv"

// State is the state of the transfer state machine.
//
type State uint8

// Transfer states.
//
const (
	Idle State = iota
	Setup
	Data
	Hold

	stateCount
)

var stateNames = [stateCount]string{
	Idle:  "IDLE",
	Setup: "SETUP",
	Data:  "DATA",
	Hold:  "HOLD",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Cond holds the conditions sampled by the state machine on a given tick.
//
type Cond struct {
	Empty bool // the byte queue is empty
	Wait  bool // the serializer applies backpressure
	Rise  bool // divider period match
}

type transition struct {
	when func(c Cond) bool
	to   State
}

// transitions is the complete transition table. A state for which the
// condition does not hold keeps its value.
//
var transitions = [stateCount]transition{
	Idle:  {func(c Cond) bool { return !c.Empty && !c.Wait }, Setup},
	Setup: {func(c Cond) bool { return c.Rise }, Data},
	Data:  {func(c Cond) bool { return c.Empty && !c.Wait && c.Rise }, Hold},
	Hold:  {func(c Cond) bool { return c.Rise }, Idle},
}

// Next returns the state following s under conditions c.
//
// Next panics if s is not a valid state.
//
func (s State) Next(c Cond) State {
	if s >= stateCount {
		panic("invalid transfer state " + s.String())
	}
	if t := transitions[s]; t.when(c) {
		return t.to
	}
	return s
}

// Selected returns true if chip select is asserted in state s.
//
func (s State) Selected() bool {
	return s != Idle
}

// ReadRequest returns true if the state machine pulls a new byte from the
// queue in state s under conditions c.
//
// No byte is requested while in Hold: the frame is closing and a byte loaded
// there would keep the serializer busy with no Data phase left to drain it.
//
func (s State) ReadRequest(c Cond) bool {
	return !c.Empty && !c.Wait && c.Rise && s != Hold
}

// OpensFrame returns true if a byte requested in state s is the first byte of
// a chip select frame.
//
func (s State) OpensFrame() bool {
	return s == Idle || s == Setup
}
