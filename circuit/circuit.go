// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package circuit provides a pin level simulation of a board on which an
// spisim core can be mounted together with peripherals and glue logic.
//
// A Circuit is a set of boolean wires and components. Every component reads
// wire states from the current frame and writes them to the next one; frames
// are swapped at the end of each simulation step. A clock signal, Clk, is
// generated with a configurable number of steps per cycle. Clocked parts
// update on the first step of a cycle (AtTick) or on the first step of its
// second half (AtTock).
//
package circuit

import (
	"math/bits"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

type worker struct {
	cs  []Component
	run chan struct{}
}

// Circuit is a runnable circuit simulation.
//
type Circuit struct {
	cur   []bool // wire states read by components
	next  []bool // wire states written by components
	cs    []Component
	wires int
	spc   uint // steps per clock cycle, a power of two
	step  uint

	ws []worker
	wg sync.WaitGroup
}

// NewCircuit mounts the given parts on a new circuit.
//
// workers is the number of goroutines updating components on every step. If
// less or equal to 0, GOMAXPROCS is used.
//
// stepsPerCycle is the number of simulation steps per cycle of the Clk
// signal. It is rounded up to a power of two and is at least 2. Combinational
// parts between two clocked parts must settle within half a cycle.
//
// Every wire must be driven by exactly one output. Unconnected inputs read
// false.
//
// Dispose must be called once the circuit is no longer needed in order to stop
// worker goroutines.
//
func NewCircuit(workers int, stepsPerCycle uint, parts ...Part) (*Circuit, error) {
	if len(parts) == 0 {
		return nil, errors.New("empty part list")
	}
	if stepsPerCycle < 2 {
		stepsPerCycle = 2
	}
	c := &Circuit{
		wires: cstCount,
		spc:   1 << uint(bits.Len(stepsPerCycle-1)),
	}

	root := newSocket(c)
	nl := newNetlist()
	for i := range parts {
		cs, err := root.mount(&parts[i], nl)
		if err != nil {
			return nil, errors.Wrap(err, "failed to mount part "+parts[i].Name)
		}
		c.cs = append(c.cs, cs...)
	}
	if err := nl.check(); err != nil {
		return nil, err
	}
	c.cs = append(c.cs, updClock)

	c.cur = make([]bool, c.wires)
	c.next = make([]bool, c.wires)
	for _, s := range [...][]bool{c.cur, c.next} {
		s[cstTrue] = true
	}
	c.cur[cstClk] = true

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	c.start(workers)
	return c, nil
}

// start splits the components in n roughly equal batches, one per goroutine.
//
func (c *Circuit) start(n int) {
	if n < 1 {
		n = 1
	}
	size := (len(c.cs) + n - 1) / n
	for cs := c.cs; len(cs) > 0; {
		if size > len(cs) {
			size = len(cs)
		}
		w := worker{cs: cs[:size], run: make(chan struct{}, 1)}
		c.ws = append(c.ws, w)
		go c.work(w)
		cs = cs[size:]
	}
}

func (c *Circuit) work(w worker) {
	for range w.run {
		for _, f := range w.cs {
			f(c)
		}
		c.wg.Done()
	}
	c.wg.Done()
}

// updClock drives Clk high during the first half of each cycle.
//
func updClock(c *Circuit) {
	if c.cur[cstFalse] || !c.cur[cstTrue] {
		panic("true or false constants have been overwritten")
	}
	c.next[cstClk] = (c.step+1)&(c.spc-1) < c.spc/2
}

// Dispose stops worker goroutines.
//
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.ws))
	for _, w := range c.ws {
		close(w.run)
	}
	c.wg.Wait()
}

func (c *Circuit) allocPin() int {
	n := c.wires
	c.wires++
	return n
}

// Steps returns the number of steps run so far.
//
func (c *Circuit) Steps() uint {
	return c.step
}

// SPC returns the number of steps per clock cycle.
//
func (c *Circuit) SPC() uint {
	return c.spc
}

// Cycles returns the number of clock cycles started so far.
//
func (c *Circuit) Cycles() uint {
	return (c.step + c.spc - 1) / c.spc
}

// AtTick returns true if the current step is the first of a clock cycle
// (raising edge of Clk).
//
func (c *Circuit) AtTick() bool {
	return c.step&(c.spc-1) == 0
}

// AtTock returns true if the current step is the first of the second half of
// a clock cycle (falling edge of Clk).
//
func (c *Circuit) AtTock() bool {
	return c.step&(c.spc-1) == c.spc/2
}

// Get returns the state of pin n in the current frame. n must be obtained
// from the Socket in a MountFn.
//
func (c *Circuit) Get(n int) bool {
	return c.cur[n]
}

// Set sets the state of pin n in the next frame. n must be obtained from the
// Socket in a MountFn.
//
func (c *Circuit) Set(n int, s bool) {
	c.next[n] = s
}

// Toggle sets the state of pin n in the next frame to the opposite of its
// current state.
//
func (c *Circuit) Toggle(n int) {
	c.next[n] = !c.cur[n]
}

// Step advances the simulation by one step.
//
func (c *Circuit) Step() {
	c.wg.Add(len(c.ws))
	for _, w := range c.ws {
		w.run <- struct{}{}
	}
	c.wg.Wait()
	c.step++
	c.cur, c.next = c.next, c.cur
}

// Tick runs the simulation until Clk goes low.
//
func (c *Circuit) Tick() {
	for c.cur[cstClk] {
		c.Step()
	}
}

// Tock runs the simulation until Clk goes high. Once Tock returns, the
// outputs of clocked parts have settled.
//
func (c *Circuit) Tock() {
	for !c.cur[cstClk] {
		c.Step()
	}
}

// TickTock runs the simulation for a whole clock cycle.
//
func (c *Circuit) TickTock() {
	c.Tick()
	c.Tock()
}

// Run runs the simulation for n clock cycles.
//
func (c *Circuit) Run(n int) {
	for ; n > 0; n-- {
		c.TickTock()
	}
}

// RunUntil runs whole clock cycles until done returns true or max cycles
// have run. It returns the number of cycles run and whether done returned
// true. done is called between cycles, when no component is running.
//
func (c *Circuit) RunUntil(max int, done func() bool) (int, bool) {
	for n := 0; n < max; n++ {
		if done() {
			return n, true
		}
		c.TickTock()
	}
	return max, done()
}

// Size returns the number of components in the circuit.
//
func (c *Circuit) Size() int { return len(c.cs) }
