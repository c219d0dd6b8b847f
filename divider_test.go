// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spisim_test

import (
	"testing"

	"github.com/db47h/spisim"
)

func TestClockDivider_period(t *testing.T) {
	for d := 0; d < 256; d++ {
		div := uint8(d)
		var cd spisim.ClockDivider
		var rises, falls []int
		for i := 0; i < 3*(d+1); i++ {
			r, f := cd.Edges(div, true)
			if r {
				rises = append(rises, i)
			}
			if f {
				falls = append(falls, i)
			}
			cd = cd.Next(div, true)
		}
		if len(rises) != 3 || len(falls) != 3 {
			t.Fatalf("D=%d: expected 3 rises and falls, got %v and %v", d, rises, falls)
		}
		for i := 1; i < 3; i++ {
			if p := rises[i] - rises[i-1]; p != d+1 {
				t.Fatalf("D=%d: rise period %d", d, p)
			}
			if p := falls[i] - falls[i-1]; p != d+1 {
				t.Fatalf("D=%d: fall period %d", d, p)
			}
		}
		if rises[0] != d || falls[0] != d>>1 {
			t.Fatalf("D=%d: first rise at %d, first fall at %d", d, rises[0], falls[0])
		}
	}
}

func TestClockDivider_clock(t *testing.T) {
	// D=3: fall at count 1, rise at count 3.
	exp := []bool{false, true, true, false, false, true, true, false}
	var cd spisim.ClockDivider
	for i, e := range exp {
		cd = cd.Next(3, true)
		if cd.Clock() != e {
			t.Fatalf("tick %d: expected clock %v, got %v", i, e, cd.Clock())
		}
	}

	// D=0 toggles on every tick.
	cd = spisim.ClockDivider{}
	for i := 0; i < 8; i++ {
		prev := cd.Clock()
		cd = cd.Next(0, true)
		if cd.Clock() == prev {
			t.Fatalf("tick %d: D=0 clock did not toggle", i)
		}
	}
}

func TestClockDivider_enable(t *testing.T) {
	var cd spisim.ClockDivider
	cd = cd.Next(7, true).Next(7, true)
	for i := 0; i < 20; i++ {
		if r, f := cd.Edges(0, false); r || f {
			t.Fatal("edges while disabled")
		}
		cd = cd.Next(7, false)
	}
	if cd.Count() != 2 {
		t.Fatalf("expected count to hold at 2, got %d", cd.Count())
	}
}

func TestClockDivider_lowered(t *testing.T) {
	var cd spisim.ClockDivider
	for i := 0; i < 10; i++ {
		cd = cd.Next(200, true)
	}
	// lowering the divisor below the count fires at once.
	if r, _ := cd.Edges(3, true); !r {
		t.Fatal("expected rise after lowering the divisor")
	}
	if cd = cd.Next(3, true); cd.Count() != 0 {
		t.Fatalf("expected count 0, got %d", cd.Count())
	}
}
