// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import (
	"testing"

	"github.com/db47h/spisim"
	"github.com/db47h/spisim/device"
	"github.com/db47h/spisim/fifo"
)

// A Record holds the inputs and outputs of a single core tick.
//
type Record struct {
	In  spisim.Inputs
	Out spisim.Outputs
}

// A Recorder drives a core connected to a queue and a peripheral, and records
// every tick.
//
type Recorder struct {
	Core   *spisim.Core
	Queue  *fifo.Queue
	Dev    device.Peripheral
	Config spisim.Config
	Log    []Record
}

// NewRecorder returns a new Recorder for a fresh core using cfg.
//
func NewRecorder(cfg spisim.Config, dev device.Peripheral, depth int) *Recorder {
	return &Recorder{
		Core:   spisim.NewCore(),
		Queue:  fifo.New(depth),
		Dev:    dev,
		Config: cfg,
	}
}

// Push pushes bytes to the queue. It panics if the queue overflows.
//
func (r *Recorder) Push(p ...byte) {
	if _, err := r.Queue.Write(p); err != nil {
		panic(err)
	}
}

// TickWith runs one tick with the given reset and enable inputs.
//
func (r *Recorder) TickWith(reset, enable bool) spisim.Outputs {
	in := spisim.Inputs{
		Reset:      reset,
		Enable:     enable,
		Config:     r.Config,
		QueueData:  r.Queue.Data(),
		QueueEmpty: r.Queue.Empty(),
	}
	in.MISO = r.Dev.Step(r.Core.Lines(r.Config))
	out := r.Core.Tick(in)
	if reset {
		r.Queue.Reset()
	} else {
		r.Queue.Tick(out.ReadRequest)
	}
	r.Log = append(r.Log, Record{in, out})
	return out
}

// Tick runs one enabled tick.
//
func (r *Recorder) Tick() spisim.Outputs {
	return r.TickWith(false, true)
}

// Run runs n enabled ticks.
//
func (r *Recorder) Run(n int) {
	for ; n > 0; n-- {
		r.Tick()
	}
}

// Drain runs the core until the queue is empty and the core is back in Idle,
// or max ticks have elapsed. It returns false on timeout.
//
func (r *Recorder) Drain(max int) bool {
	for i := 0; i < max; i++ {
		r.Tick()
		if r.Queue.Empty() && r.Core.State() == spisim.Idle {
			return true
		}
	}
	return false
}

func pack(bits []bool, lsbFirst bool) []byte {
	var p []byte
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			if !bits[i+j] {
				continue
			}
			if lsbFirst {
				b |= 1 << uint(j)
			} else {
				b |= 0x80 >> uint(j)
			}
		}
		p = append(p, b)
	}
	return p
}

// Sent returns the bytes shifted out on MOSI so far, decoded using the bit
// order of the recorder's configuration.
//
func (r *Recorder) Sent() []byte {
	var bits []bool
	for i := range r.Log {
		if r.Log[i].Out.Shift {
			bits = append(bits, r.Log[i].Out.MOSI)
		}
	}
	return pack(bits, r.Config.LSBFirst)
}

// Received returns the bytes captured by the receive accumulator, read after
// every eighth shift.
//
func (r *Recorder) Received() []byte {
	var p []byte
	n := 0
	for i := range r.Log {
		if !r.Log[i].Out.Shift {
			continue
		}
		if n++; n&7 == 0 && i+1 < len(r.Log) {
			p = append(p, spisim.LastByte(r.Log[i+1].Out.RxData, r.Config.LSBFirst))
		}
	}
	return p
}

// States returns the sequence of distinct states visited, starting with the
// state of the first recorded tick.
//
func (r *Recorder) States() []spisim.State {
	var s []spisim.State
	for i := range r.Log {
		st := r.Log[i].Out.State
		if len(s) == 0 || s[len(s)-1] != st {
			s = append(s, st)
		}
	}
	return s
}

// Check verifies the core invariants over log:
//
//	- chip select is asserted if and only if the core is not Idle
//	- SCLK leaves its idle level only in the Data state
//	- bits are only shifted in the Data state
//	- read requests only happen on a non empty queue
//	- the completion pulse fires once, one tick after each Idle to non Idle
//	  transition, except around a reset
//
func Check(t testing.TB, log []Record) {
	t.Helper()
	sel := func(i int) bool { return log[i].Out.State.Selected() }
	for i := range log {
		in, out := &log[i].In, &log[i].Out
		if out.CS != sel(i) {
			t.Fatalf("tick %d: chip select %v in state %v", i, out.CS, out.State)
		}
		if out.SCLK != in.Polarity && out.State != spisim.Data {
			t.Fatalf("tick %d: SCLK active in state %v", i, out.State)
		}
		if out.Shift && out.State != spisim.Data {
			t.Fatalf("tick %d: shift in state %v", i, out.State)
		}
		if out.ReadRequest && in.QueueEmpty {
			t.Fatalf("tick %d: read request on empty queue", i)
		}
		if i < 2 || in.Reset || log[i-1].In.Reset || log[i-2].In.Reset {
			continue
		}
		if exp := sel(i-1) && !sel(i-2); out.Done != exp {
			t.Fatalf("tick %d: completion pulse %v, expected %v", i, out.Done, exp)
		}
	}
}
