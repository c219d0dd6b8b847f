// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package trace_test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/db47h/spisim"
	"github.com/db47h/spisim/device"
	"github.com/db47h/spisim/hwtest"
	"github.com/db47h/spisim/trace"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

const idleDump = `$version spisim $end
$timescale 1ps $end
$scope module spi $end
$var wire 2 ! state [1:0] $end
$var wire 1 " sclk $end
$var wire 1 # mosi $end
$var wire 1 $ miso $end
$var wire 1 % cs $end
$var wire 1 & rreq $end
$var wire 1 ' shift $end
$var wire 1 ( done $end
$var wire 64 ) rx [63:0] $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
b0 !
0"
0#
0$
0%
0&
0'
0(
b0 )
$end
#30000
`

func TestIdle(t *testing.T) {
	var b bytes.Buffer
	w := trace.NewWriter(&b, 100*physic.MegaHertz)
	c := spisim.NewCore()
	for i := 0; i < 3; i++ {
		in := spisim.Inputs{Enable: true, QueueEmpty: true}
		w.Trace(in, c.Tick(in))
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if b.String() != idleDump {
		t.Fatalf("unexpected output:\n%s", b.String())
	}
}

// At 16MHz a tick lasts 62.5ns: timestamps must not drift.
func TestTimestamps(t *testing.T) {
	var b bytes.Buffer
	w := trace.NewWriter(&b, 16*physic.MegaHertz)
	r := hwtest.NewRecorder(spisim.Config{Divisor: 1}, device.Loopback{}, 4)
	r.Push(0x55)
	if !r.Drain(200) {
		t.Fatal("transfer did not complete")
	}
	for _, rec := range r.Log {
		w.Trace(rec.In, rec.Out)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	for _, l := range lines {
		if !strings.HasPrefix(l, "#") {
			continue
		}
		ps, err := strconv.ParseUint(l[1:], 10, 64)
		if err != nil {
			t.Fatal(err)
		}
		if ps%62500 != 0 {
			t.Errorf("timestamp %d ps is not a multiple of the tick period", ps)
		}
	}
	if exp := "#" + strconv.Itoa(len(r.Log)*62500); lines[len(lines)-1] != exp {
		t.Errorf("expected final timestamp %s, got %s", exp, lines[len(lines)-1])
	}
}

func TestTransfer(t *testing.T) {
	var b bytes.Buffer
	w := trace.NewWriter(&b, 0)
	r := hwtest.NewRecorder(spisim.Config{Divisor: 3}, device.Loopback{}, 4)
	r.Push(0xa5)
	if !r.Drain(200) {
		t.Fatal("transfer did not complete")
	}
	r.Run(2)
	for _, rec := range r.Log {
		w.Trace(rec.In, rec.Out)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if w.Ticks() != uint64(len(r.Log)) {
		t.Fatalf("expected %d ticks, got %d", len(r.Log), w.Ticks())
	}

	var sclk, cs, done int
	for _, l := range strings.Split(b.String(), "\n") {
		switch l {
		case `1"`, `0"`:
			sclk++
		case "1%", "0%":
			cs++
		case "1(":
			done++
		}
	}
	// initial dump plus 8 periods
	if sclk != 17 {
		t.Errorf("expected 17 sclk values, got %d", sclk)
	}
	// initial dump, assert, deassert
	if cs != 3 {
		t.Errorf("expected 3 cs values, got %d", cs)
	}
	if done != 1 {
		t.Errorf("expected 1 completion pulse, got %d", done)
	}
	if !strings.Contains(b.String(), "b10100101 )") {
		t.Error("loopback byte not found in rx values")
	}
}

type failWriter struct{}

var errWrite = errors.New("write failed")

func (failWriter) Write(p []byte) (int, error) { return 0, errWrite }

func TestWriteError(t *testing.T) {
	w := trace.NewWriter(failWriter{}, physic.MegaHertz)
	in := spisim.Inputs{QueueEmpty: true}
	w.Trace(in, spisim.Outputs{})
	err := w.Flush()
	if errors.Cause(err) != errWrite {
		t.Fatalf("expected %v, got %v", errWrite, err)
	}
}
