// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim

// EdgeDetector turns the inactive to active transition of a level into a
// single tick pulse, one tick after the transition.
//
type EdgeDetector struct {
	prev  bool
	pulse bool
}

// Pulse returns the detector output for the current tick.
//
func (e EdgeDetector) Pulse() bool {
	return e.pulse
}

// Next returns the detector state for the next tick given the current level.
//
func (e EdgeDetector) Next(level bool) EdgeDetector {
	return EdgeDetector{prev: level, pulse: level && !e.prev}
}
