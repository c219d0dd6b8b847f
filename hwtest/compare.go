// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing SPI cores and the
// circuits built around them.
//
package hwtest

import (
	"math/rand"
	"testing"
	"time"

	"github.com/db47h/spisim"
	"github.com/db47h/spisim/circuit"
	"github.com/db47h/spisim/fifo"
	"github.com/db47h/spisim/hwlib"
)

func randBool(r *rand.Rand) bool {
	return r.Int63()&(1<<62) != 0
}

// RandomInputs returns random core inputs. The configuration is kept in a
// range where transfers complete quickly: divisors are below 8, reset is rare
// and the divider is enabled most of the time. Queue fields are left empty.
//
func RandomInputs(r *rand.Rand) spisim.Inputs {
	return spisim.Inputs{
		Reset:  r.Intn(256) == 0,
		Enable: r.Intn(8) != 0,
		Config: spisim.Config{
			Divisor:  uint8(r.Intn(8)),
			Polarity: randBool(r),
			Phase:    randBool(r),
			LSBFirst: randBool(r),
			Override: r.Intn(4) == 0,
			Command:  uint8(r.Intn(256)),
		},
		MISO: randBool(r),
	}
}

// CompareMaster mounts an hwlib.Master part in a circuit with tpc steps per
// clock cycle and runs it side by side with a bare core for the given number
// of ticks. Both receive the same random inputs and queue contents, and their
// outputs must match on every tick.
//
// The configuration is redrawn every 64 ticks.
//
func CompareMaster(t *testing.T, tpc uint, ticks int, seed int64) {
	t.Helper()

	rnd := rand.New(rand.NewSource(seed))

	var cur spisim.Inputs
	var got struct {
		sclk, mosi, ssn, done, rreq bool
		state, rx                   uint64
	}

	core, q := spisim.NewCore(), fifo.New(8)
	ref, rq := spisim.NewCore(), fifo.New(8)

	in := func(f func() bool) circuit.NewPartFn { return hwlib.Input(f) }
	out := func(v *bool) circuit.NewPartFn { return hwlib.Output(func(b bool) { *v = b }) }
	c, err := circuit.NewCircuit(0, tpc,
		in(func() bool { return cur.Reset })("out=rst"),
		in(func() bool { return cur.Enable })("out=en"),
		in(func() bool { return cur.MISO })("out=miso"),
		in(func() bool { return cur.Polarity })("out=cpol"),
		in(func() bool { return cur.Phase })("out=cpha"),
		in(func() bool { return cur.LSBFirst })("out=lsb"),
		in(func() bool { return cur.Override })("out=ovr"),
		hwlib.InputN(8, func() uint64 { return uint64(cur.Divisor) })("out=div"),
		hwlib.InputN(8, func() uint64 { return uint64(cur.Command) })("out=cmd"),
		hwlib.Master(core, q)("rst=rst, en=en, miso=miso, cpol=cpol, cpha=cpha, lsb=lsb, ovr=ovr, div=div, cmd=cmd, "+
			"sclk=sclk, mosi=mosi, ssn=ssn, done=done, rreq=rreq, state=state, rx=rx"),
		out(&got.sclk)("in=sclk"),
		out(&got.mosi)("in=mosi"),
		out(&got.ssn)("in=ssn"),
		out(&got.done)("in=done"),
		out(&got.rreq)("in=rreq"),
		hwlib.OutputN(2, func(v uint64) { got.state = v })("in=state"),
		hwlib.OutputN(64, func(v uint64) { got.rx = v })("in=rx"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	start := time.Now()

	// the master samples its input pins one clock cycle after they are set,
	// so the reference core runs with the previous inputs.
	var prev spisim.Inputs
	cfg := RandomInputs(rnd).Config
	for i := 0; i < ticks; i++ {
		if i&63 == 0 {
			cfg = RandomInputs(rnd).Config
		}
		next := RandomInputs(rnd)
		next.Config = cfg
		if !q.Full() && rnd.Intn(4) == 0 {
			b := byte(rnd.Intn(256))
			_ = q.Push(b)
			_ = rq.Push(b)
		}
		cur = next

		// reference tick, mirroring the master part.
		rin := prev
		rin.QueueData, rin.QueueEmpty = rq.Data(), rq.Empty()
		ro := ref.Tick(rin)
		if rin.Reset {
			rq.Reset()
		} else {
			rq.Tick(ro.ReadRequest)
		}
		l := ref.Lines(rin.Config)

		c.TickTock()

		switch {
		case got.sclk != l.SCLK, got.mosi != l.MOSI, got.ssn != l.SSn():
			t.Fatalf("tick %d: lines sclk=%v mosi=%v ssn=%v, expected %+v", i, got.sclk, got.mosi, got.ssn, l)
		case got.state != uint64(ref.State()):
			t.Fatalf("tick %d: state %d, expected %v", i, got.state, ref.State())
		case got.done != ro.Done, got.rreq != ro.ReadRequest:
			t.Fatalf("tick %d: done=%v rreq=%v, expected %v %v", i, got.done, got.rreq, ro.Done, ro.ReadRequest)
		case got.rx != ro.RxData:
			t.Fatalf("tick %d: rx %#x, expected %#x", i, got.rx, ro.RxData)
		}
		prev = next
	}

	elapsed := time.Since(start)
	t.Logf("%d components. %d steps in %v. %d clock ticks => %.2f Hz", c.Size(), c.Steps(), elapsed, ticks, float64(ticks)/(float64(elapsed)/float64(time.Second)))
}
