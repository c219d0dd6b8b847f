// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim

// ClockDivider is the baud rate generator.
//
// It counts input clock ticks from 0 to the divisor and produces a rise event
// when the count reaches the divisor and a fall event half a period later, so
// that the period is exactly divisor+1 ticks. The zero value is the reset
// state.
//
type ClockDivider struct {
	count uint8
	clk   bool
}

// Edges returns the rise and fall events for the current tick.
//
// With a divisor of 0, both events fire on every tick. When enable is false,
// no event is produced.
//
func (d ClockDivider) Edges(divisor uint8, enable bool) (rise, fall bool) {
	if !enable {
		return false, false
	}
	// count can exceed divisor for one tick when the divisor is lowered.
	return d.count >= divisor, d.count == divisor>>1
}

// Clock returns the level of the divided clock. It goes low after a rise event
// and high after a fall event.
//
func (d ClockDivider) Clock() bool {
	return d.clk
}

// Count returns the current counter value.
//
func (d ClockDivider) Count() uint8 {
	return d.count
}

// Next returns the divider state for the next tick.
//
func (d ClockDivider) Next(divisor uint8, enable bool) ClockDivider {
	rise, fall := d.Edges(divisor, enable)
	switch {
	case rise && fall:
		d.clk = !d.clk
	case rise:
		d.clk = false
	case fall:
		d.clk = true
	}
	switch {
	case rise:
		d.count = 0
	case enable:
		d.count++
	}
	return d
}
