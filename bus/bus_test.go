// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package bus_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/db47h/spisim"
	"github.com/db47h/spisim/bus"
	"github.com/db47h/spisim/device"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"tinygo.org/x/drivers"
)

func TestDivisor(t *testing.T) {
	td := []struct {
		sysclk, f physic.Frequency
		d         uint8
		actual    physic.Frequency
	}{
		{16 * physic.MegaHertz, 8 * physic.MegaHertz, 1, 8 * physic.MegaHertz},
		{16 * physic.MegaHertz, 16 * physic.MegaHertz, 1, 8 * physic.MegaHertz},
		{16 * physic.MegaHertz, 1 * physic.MegaHertz, 15, 1 * physic.MegaHertz},
		{16 * physic.MegaHertz, 3 * physic.MegaHertz, 5, 16 * physic.MegaHertz / 6},
		{256 * physic.KiloHertz, 1 * physic.KiloHertz, 255, 1 * physic.KiloHertz},
	}
	for _, d := range td {
		div, actual, err := bus.Divisor(d.sysclk, d.f)
		if err != nil {
			t.Fatal(err)
		}
		if div != d.d || actual != d.actual {
			t.Errorf("%s/%s: expected %d, %s, got %d, %s", d.sysclk, d.f, d.d, d.actual, div, actual)
		}
	}
	if _, _, err := bus.Divisor(physic.MegaHertz, physic.KiloHertz); err == nil {
		t.Error("expected an error for a too low frequency")
	}
	if _, _, err := bus.Divisor(physic.MegaHertz, 0); err == nil {
		t.Error("expected an error for a null frequency")
	}
}

func connect(t *testing.T, dev device.Peripheral, mode spi.Mode, opts ...bus.Option) (*bus.Port, *bus.Conn) {
	t.Helper()
	p := bus.NewPort("test", 8*physic.MegaHertz, dev, opts...)
	c, err := p.Connect(2*physic.MegaHertz, mode, 8)
	if err != nil {
		t.Fatal(err)
	}
	return p, c.(*bus.Conn)
}

func TestConn_loopback(t *testing.T) {
	var ticks int
	p, c := connect(t, device.Loopback{}, spi.Mode0, bus.WithTracer(func(spisim.Inputs, spisim.Outputs) { ticks++ }))
	if p.String() != "test" || c.String() != "test" || c.Duplex() != conn.Full {
		t.Fatal("bad port description")
	}
	if c.Frequency() != 2*physic.MegaHertz || c.Config().Divisor != 3 {
		t.Fatalf("bad frequency %s, divisor %d", c.Frequency(), c.Config().Divisor)
	}
	w := []byte{0x00, 0xff, 0xa5, 0x5a, 0x01, 0x80}
	r := make([]byte, len(w))
	if err := c.Tx(w, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, w) {
		t.Fatalf("expected %x, got %x", w, r)
	}
	if ticks == 0 || uint64(ticks) != p.Ticks() {
		t.Fatalf("tracer called %d times for %d ticks", ticks, p.Ticks())
	}
	// read only
	r = make([]byte, 3)
	if err := c.Tx(nil, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0, 0, 0}) {
		t.Fatalf("expected zeros, got %x", r)
	}
	// write only
	if err := c.Tx([]byte{1, 2}, nil); err != nil {
		t.Fatal(err)
	}
}

func TestConn_modes(t *testing.T) {
	w := []byte{0x9f, 0x12, 0x00}
	resp := []byte{0xc2, 0x20, 0x16}
	for _, m := range []spi.Mode{spi.Mode0, spi.Mode1, spi.Mode2, spi.Mode3, spi.Mode3 | spi.LSBFirst} {
		dev := device.NewShiftRegister(m, resp...)
		_, c := connect(t, dev, m)
		r := make([]byte, len(w))
		if err := c.Tx(w, r); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(r, resp) {
			t.Errorf("mode %v: expected %x, got %x", m, resp, r)
		}
		if got := dev.Received(); !bytes.Equal(got, w) {
			t.Errorf("mode %v: device received %x, expected %x", m, got, w)
		}
	}
}

func TestConn_TxPackets(t *testing.T) {
	dev := device.NewShiftRegister(spi.Mode0, 1, 2, 3, 4, 5)
	_, c := connect(t, dev, spi.Mode0)
	r1, r2 := make([]byte, 1), make([]byte, 2)
	err := c.TxPackets([]spi.Packet{
		{W: []byte{0x9f}, R: r1, KeepCS: true},
		{W: []byte{0xaa, 0xbb}, R: r2},
		{W: []byte{0xcc}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r1[0] != 1 || !bytes.Equal(r2, []byte{2, 3}) {
		t.Fatalf("unexpected reads %x %x", r1, r2)
	}
	// the peripheral sees the end of the last frame on the next transaction.
	if _, err = c.Transfer(0); err != nil {
		t.Fatal(err)
	}
	fs := dev.Frames()
	if len(fs) < 2 || !bytes.Equal(fs[0], []byte{0x9f, 0xaa, 0xbb}) || !bytes.Equal(fs[1], []byte{0xcc}) {
		t.Fatalf("unexpected frames %x", fs)
	}

	// a trailing empty packet closes the frame held open by KeepCS.
	sr := device.NewShiftRegister(spi.Mode0, 0x56, 0x78)
	_, c2 := connect(t, sr, spi.Mode0)
	r := make([]byte, 2)
	if err = c2.TxPackets([]spi.Packet{{W: []byte{0x12, 0x34}, R: r, KeepCS: true}, {}}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0x56, 0x78}) {
		t.Fatalf("expected 5678, got %x", r)
	}
	if got := sr.Received(); !bytes.Equal(got, []byte{0x12, 0x34}) {
		t.Fatalf("device received %x", got)
	}

	for _, pkts := range [][]spi.Packet{
		{{W: []byte{1}, BitsPerWord: 16}},
		{{W: []byte{1, 2}, R: make([]byte, 1)}},
	} {
		if err := c.TxPackets(pkts); err == nil {
			t.Errorf("expected an error for %+v", pkts)
		}
	}
}

func TestConn_command(t *testing.T) {
	dev := device.NewShiftRegister(spi.Mode0, 0xff, 0xef, 0x40)
	_, c := connect(t, dev, spi.Mode0, bus.WithCommand(0x9f), bus.WithFIFODepth(2))
	if !c.Config().Override || c.Config().Command != 0x9f {
		t.Fatalf("bad config %+v", c.Config())
	}
	r := make([]byte, 2)
	if err := c.Tx(nil, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0xef, 0x40}) {
		t.Fatalf("expected ef40, got %x", r)
	}
	if got := dev.Received(); !bytes.Equal(got, []byte{0x9f, 0, 0}) {
		t.Fatalf("device received %x", got)
	}
}

func TestConn_drivers(t *testing.T) {
	_, c := connect(t, device.Loopback{}, spi.Mode1)
	var d drivers.SPI = c
	for _, b := range []byte{0, 0x5a, 0xff} {
		r, err := d.Transfer(b)
		if err != nil {
			t.Fatal(err)
		}
		if r != b {
			t.Fatalf("expected %02x, got %02x", b, r)
		}
	}
}

func TestConn_stall(t *testing.T) {
	var log bytes.Buffer
	l := slog.New(slog.NewTextHandler(&log, nil))
	_, c := connect(t, device.Loopback{}, spi.Mode0, bus.WithTickBudget(2), bus.WithLogger(l))
	err := c.Tx([]byte{1, 2, 3}, nil)
	if errors.Cause(err) != bus.ErrStall {
		t.Fatalf("expected ErrStall, got %v", err)
	}
	if !strings.Contains(log.String(), "transaction stalled") || !strings.Contains(log.String(), "component=bus") {
		t.Fatalf("missing log entry in %q", log.String())
	}
}

func TestPort(t *testing.T) {
	p := bus.NewPort("p", 8*physic.MegaHertz, device.Loopback{})
	if _, err := p.Connect(physic.MegaHertz, spi.Mode0, 16); err == nil {
		t.Error("expected an error for 16 bits words")
	}
	if _, err := p.Connect(physic.MegaHertz, spi.Mode0|spi.HalfDuplex, 8); err == nil {
		t.Error("expected an error for half duplex")
	}
	if err := p.LimitSpeed(0); err == nil {
		t.Error("expected an error for a null speed")
	}
	if err := p.LimitSpeed(physic.MegaHertz); err != nil {
		t.Fatal(err)
	}
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		t.Fatal(err)
	}
	if f := c.(*bus.Conn).Frequency(); f != physic.MegaHertz {
		t.Fatalf("expected speed limited to 1MHz, got %s", f)
	}
	if err = p.Close(); err != nil {
		t.Fatal(err)
	}
	if err = c.Tx([]byte{1}, nil); err != bus.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err = p.Connect(physic.MegaHertz, spi.Mode0, 8); err != bus.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
