// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim

// Inputs holds the core inputs for one tick.
//
type Inputs struct {
	Reset  bool // asynchronous reset, has priority over everything else
	Enable bool // clock divider enable
	Config

	QueueData  uint8 // byte presented by the queue
	QueueEmpty bool
	MISO       bool // serial input
}

// Lines holds the levels of the SPI lines driven by the core.
//
type Lines struct {
	SCLK bool
	MOSI bool
	CS   bool // chip select asserted
}

// SSn returns the level of an active low slave select line.
//
func (l Lines) SSn() bool {
	return !l.CS
}

// Outputs holds the core outputs for one tick.
//
type Outputs struct {
	Lines
	State       State
	ReadRequest bool   // pops the queue
	Shift       bool   // a bit was shifted in and out on this tick
	Done        bool   // completion pulse
	RxData      uint64 // receive accumulator
}

// registered state.
type regs struct {
	div   ClockDivider
	state State
	ser   Serializer
	des   Deserializer
	edge  EdgeDetector
}

// combinational signals.
type wires struct {
	rise, fall bool
	wait       bool
	rreq       bool
	shift      bool
}

// Core is the top level SPI controller. It holds no logic of its own beyond
// routing signals between its components.
//
// The zero value is a core in reset state, ready to use.
//
type Core struct {
	r0    regs // current register frame
	r1    regs // next register frame
	w     wires
	in    Inputs
	ticks uint64
}

// NewCore returns a new core in reset state.
//
func NewCore() *Core {
	return new(Core)
}

// Evaluation order matters for combinational signals: a function may read
// signals set by the ones before it. Sequential updates only read the current
// frame and the wires, so their order does not matter.
var (
	combinational = [...]func(c *Core){evalDivider, evalSerializer, evalStateMachine}
	sequential    = [...]func(c *Core){updDivider, updStateMachine, updSerializer, updDeserializer, updEdge}
)

func (c *Core) cond() Cond {
	return Cond{Empty: c.in.QueueEmpty, Wait: c.w.wait, Rise: c.w.rise}
}

func evalDivider(c *Core) {
	c.w.rise, c.w.fall = c.r0.div.Edges(c.in.Divisor, c.in.Enable)
}

func evalSerializer(c *Core) {
	c.w.wait = c.r0.ser.Wait()
}

func evalStateMachine(c *Core) {
	c.w.rreq = c.r0.state.ReadRequest(c.cond())
	c.w.shift = c.w.rise && c.r0.state == Data && !c.r0.ser.Loading()
}

func updDivider(c *Core) {
	c.r1.div = c.r0.div.Next(c.in.Divisor, c.in.Enable)
}

func updStateMachine(c *Core) {
	c.r1.state = c.r0.state.Next(c.cond())
}

func updSerializer(c *Core) {
	c.r1.ser = c.r0.ser.Next(SerializerIn{
		Request:  c.w.rreq,
		Command:  c.in.Override && c.r0.state.OpensFrame(),
		Shift:    c.w.shift,
		LSBFirst: c.in.LSBFirst,
		Cmd:      c.in.Command,
		Queue:    c.in.QueueData,
	})
}

func updDeserializer(c *Core) {
	c.r1.des = c.r0.des.Next(c.w.shift, c.in.LSBFirst, c.in.MISO)
}

func updEdge(c *Core) {
	c.r1.edge = c.r0.edge.Next(c.r0.state.Selected())
}

// Tick advances the core by one clock tick and returns the outputs for that
// tick.
//
// Combinational signals are computed first from the current registers and in,
// then the next register frame is computed and committed at once.
//
// If in.Reset is set, the core is reset before the outputs are computed: the
// returned outputs already show the Idle state with chip select deasserted.
//
func (c *Core) Tick(in Inputs) Outputs {
	c.ticks++
	if in.Reset {
		c.Reset()
		return c.outputs(&in.Config)
	}
	c.in = in
	for _, f := range combinational {
		f(c)
	}
	out := c.outputs(&in.Config)
	for _, f := range sequential {
		f(c)
	}
	c.r0, c.r1 = c.r1, c.r0
	return out
}

func (c *Core) outputs(cfg *Config) Outputs {
	return Outputs{
		Lines:       c.Lines(*cfg),
		State:       c.r0.state,
		ReadRequest: c.w.rreq,
		Shift:       c.w.shift,
		Done:        c.r0.edge.Pulse(),
		RxData:      c.r0.des.Word(),
	}
}

// Lines returns the line levels driven by the core for the upcoming tick.
// They only depend on registered state, so a peripheral model can use them to
// compute its MISO input for that same tick.
//
func (c *Core) Lines(cfg Config) Lines {
	r := &c.r0
	return Lines{
		SCLK: cfg.Polarity != (r.state == Data && r.div.Clock() != cfg.Phase),
		MOSI: r.ser.Out(cfg.LSBFirst),
		CS:   r.state.Selected(),
	}
}

// Reset forces every register to its initial value.
//
func (c *Core) Reset() {
	c.r0, c.r1 = regs{}, regs{}
	c.w = wires{}
}

// State returns the current transfer state.
//
func (c *Core) State() State {
	return c.r0.state
}

// RxData returns the current value of the receive accumulator.
//
func (c *Core) RxData() uint64 {
	return c.r0.des.Word()
}

// Ticks returns the number of ticks since the core was created.
//
func (c *Core) Ticks() uint64 {
	return c.ticks
}
