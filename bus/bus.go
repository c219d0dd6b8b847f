// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package bus exposes an spisim core as an SPI port.
//
// A Port owns a core, its byte queue and a peripheral model. Connections
// returned by Port.Connect implement both periph.io's spi.Conn and TinyGo's
// drivers.SPI, so that existing device drivers can run against the simulated
// controller.
//
// Every transaction runs the core tick by tick until its frame is closed
// (the core is back in Idle). The simulated time only advances during
// transactions.
//
package bus

import (
	"log/slog"
	"sync"

	"github.com/db47h/spisim"
	"github.com/db47h/spisim/device"
	"github.com/db47h/spisim/fifo"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"tinygo.org/x/drivers"
)

// ErrStall is returned (wrapped) when a transaction does not complete within
// its tick budget. The core and queue are reset when this happens.
//
var ErrStall = errors.New("bus: controller stalled")

// ErrClosed is returned when using a closed port.
//
var ErrClosed = errors.New("bus: port closed")

// DefaultFIFODepth is the default depth of the byte queue.
//
const DefaultFIFODepth = 16

// A Tracer is called on every core tick with the tick inputs and outputs.
//
type Tracer func(in spisim.Inputs, out spisim.Outputs)

// Option configures a Port.
//
type Option func(p *Port)

// WithLogger sets the logger used by the port. The default is slog.Default().
//
func WithLogger(l *slog.Logger) Option {
	return func(p *Port) { p.log = l }
}

// WithTickBudget sets the number of core ticks allowed per transferred byte
// before a transaction is considered stalled. The default is 16 SCLK periods.
//
func WithTickBudget(ticks int) Option {
	return func(p *Port) { p.budget = ticks }
}

// WithCommand enables override mode: every chip select frame starts with the
// command byte cmd, followed by the written bytes. The byte received while
// the command is shifted out is discarded.
//
func WithCommand(cmd byte) Option {
	return func(p *Port) {
		p.override = true
		p.cmd = cmd
	}
}

// WithFIFODepth sets the depth of the byte queue.
//
func WithFIFODepth(depth int) Option {
	return func(p *Port) { p.depth = depth }
}

// WithTracer installs a tick tracer.
//
func WithTracer(t Tracer) Option {
	return func(p *Port) { p.trace = t }
}

// Port is a simulated SPI port. It implements spi.PortCloser.
//
type Port struct {
	mu       sync.Mutex
	name     string
	sysclk   physic.Frequency
	maxFreq  physic.Frequency
	core     *spisim.Core
	q        *fifo.Queue
	dev      device.Peripheral
	depth    int
	budget   int
	override bool
	cmd      byte
	trace    Tracer
	log      *slog.Logger
	closed   bool
}

var (
	_ spi.PortCloser = (*Port)(nil)
	_ spi.Conn       = (*Conn)(nil)
	_ drivers.SPI    = (*Conn)(nil)
)

// NewPort returns a new port running its core at the system clock frequency
// sysclk, with dev connected to the bus.
//
func NewPort(name string, sysclk physic.Frequency, dev device.Peripheral, opts ...Option) *Port {
	p := &Port{
		name:   name,
		sysclk: sysclk,
		core:   spisim.NewCore(),
		dev:    dev,
		depth:  DefaultFIFODepth,
	}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("component", "bus", "port", name)
	p.q = fifo.New(p.depth)
	return p
}

// String implements spi.Port.
//
func (p *Port) String() string {
	return p.name
}

// Close implements spi.PortCloser. It resets the core.
//
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.core.Reset()
	p.q.Reset()
	return nil
}

// Ticks returns the number of core ticks run so far.
//
func (p *Port) Ticks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.core.Ticks()
}

// LimitSpeed implements spi.PortCloser.
//
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return errors.Errorf("bus: invalid speed %s", f)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxFreq == 0 || f < p.maxFreq {
		p.maxFreq = f
	}
	return nil
}

// Divisor returns the clock divisor giving the fastest SCLK frequency not
// above f for a core running at sysclk, together with that frequency.
// The divisor is at least 1, which caps SCLK at half the system clock.
//
func Divisor(sysclk, f physic.Frequency) (uint8, physic.Frequency, error) {
	if f <= 0 || sysclk <= 0 {
		return 0, 0, errors.Errorf("bus: invalid frequency %s for system clock %s", f, sysclk)
	}
	n := (sysclk + f - 1) / f
	if n < 2 {
		n = 2
	}
	if n > 256 {
		return 0, 0, errors.Errorf("bus: %s is too slow for system clock %s; minimum is %s", f, sysclk, sysclk/256)
	}
	return uint8(n - 1), sysclk / n, nil
}

// Connect implements spi.Port.
//
// Only 8 bits words are supported. The mode flags spi.HalfDuplex and spi.NoCS
// are rejected.
//
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, errors.Errorf("bus: %d bits per word not supported", bits)
	}
	cfg, err := spisim.ConfigFromMode(mode)
	if err != nil {
		return nil, errors.Wrap(err, "bus")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.maxFreq != 0 && f > p.maxFreq {
		f = p.maxFreq
	}
	d, actual, err := Divisor(p.sysclk, f)
	if err != nil {
		return nil, err
	}
	cfg.Divisor = d
	cfg.Override = p.override
	cfg.Command = p.cmd
	p.log.Debug("connect", "mode", mode, "requested", f, "sclk", actual, "divisor", d)
	return &Conn{p: p, cfg: cfg, freq: actual}, nil
}

// Conn is a connection on a simulated port.
//
type Conn struct {
	p    *Port
	cfg  spisim.Config
	freq physic.Frequency
}

// String implements conn.Conn.
//
func (c *Conn) String() string {
	return c.p.name
}

// Duplex implements conn.Conn.
//
func (c *Conn) Duplex() conn.Duplex {
	return conn.Full
}

// Frequency returns the actual SCLK frequency.
//
func (c *Conn) Frequency() physic.Frequency {
	return c.freq
}

// Config returns the core configuration used by the connection.
//
func (c *Conn) Config() spisim.Config {
	return c.cfg
}

// Tx implements conn.Conn and drivers.SPI. r must be empty or as long as w. If
// w is empty, len(r) zero bytes are written.
//
func (c *Conn) Tx(w, r []byte) error {
	return c.TxPackets([]spi.Packet{{W: w, R: r}})
}

// Transfer implements drivers.SPI.
//
func (c *Conn) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := c.Tx([]byte{b}, r[:])
	return r[0], err
}

// TxPackets implements spi.Conn.
//
// Consecutive packets with KeepCS set are sent in a single chip select frame
// together with the packet that follows them, even if that packet is empty.
//
func (c *Conn) TxPackets(pkts []spi.Packet) error {
	for i := range pkts {
		pk := &pkts[i]
		if pk.BitsPerWord != 0 && pk.BitsPerWord != 8 {
			return errors.Errorf("bus: %d bits per word not supported", pk.BitsPerWord)
		}
		if len(pk.W) != 0 && len(pk.R) != 0 && len(pk.W) != len(pk.R) {
			return errors.Errorf("bus: write and read buffers must have the same length, got %d and %d", len(pk.W), len(pk.R))
		}
	}

	p := c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	var w []byte
	var rs [][]byte
	for i := range pkts {
		pk := &pkts[i]
		n := len(pk.W)
		if n == 0 {
			n = len(pk.R)
		}
		if len(pk.W) != 0 {
			w = append(w, pk.W...)
		} else {
			w = append(w, make([]byte, n)...)
		}
		r := pk.R
		if len(r) == 0 {
			r = make([]byte, n)
		}
		rs = append(rs, r)
		if pk.KeepCS && i < len(pkts)-1 {
			continue
		}
		if len(w) > 0 {
			if err := c.frame(w, rs); err != nil {
				return err
			}
		}
		w, rs = w[:0], rs[:0]
	}
	return nil
}

// frame sends w in a single chip select frame and scatters the received
// bytes into rs.
//
func (c *Conn) frame(w []byte, rs [][]byte) error {
	p := c.p
	cfg := c.cfg
	r := make([]byte, len(w))
	skip := 0
	if cfg.Override {
		// placeholder popped in place of the command byte.
		w = append([]byte{0}, w...)
		skip = 1
	}

	budget := p.budget
	if budget <= 0 {
		budget = 16 * (int(cfg.Divisor) + 1)
	}
	limit := budget * (len(w) + 1)

	var sent, got, shifts, ticks int
	for {
		if sent < len(w) {
			n, err := p.q.Write(w[sent:])
			sent += n
			if err != nil && errors.Cause(err) != fifo.ErrFull {
				return errors.Wrap(err, "bus: queue")
			}
		}
		in := spisim.Inputs{
			Enable:     true,
			Config:     cfg,
			QueueData:  p.q.Data(),
			QueueEmpty: p.q.Empty(),
		}
		in.MISO = p.dev.Step(p.core.Lines(cfg))
		out := p.core.Tick(in)
		p.q.Tick(out.ReadRequest)
		if p.trace != nil {
			p.trace(in, out)
		}
		ticks++
		if out.Shift {
			shifts++
			if shifts&7 == 0 {
				if i := got - skip; i >= 0 && i < len(r) {
					r[i] = spisim.LastByte(p.core.RxData(), cfg.LSBFirst)
				}
				got++
			}
		}
		if sent == len(w) && got >= len(w) && p.core.State() == spisim.Idle {
			break
		}
		if ticks >= limit {
			p.core.Reset()
			p.q.Reset()
			p.log.Warn("transaction stalled", "ticks", ticks, "sent", sent, "received", got, "bytes", len(w))
			return errors.Wrapf(ErrStall, "%d/%d bytes after %d ticks", got, len(w), ticks)
		}
	}
	p.log.Debug("frame", "bytes", len(w), "ticks", ticks)

	for _, dst := range rs {
		n := copy(dst, r)
		r = r[n:]
	}
	return nil
}
