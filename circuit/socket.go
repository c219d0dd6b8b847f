// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuit

import (
	"strconv"

	"github.com/pkg/errors"
)

// Constant input pin names.
//
const (
	False = "false"
	True  = "true"
	GND   = "false"
	Clk   = "clk"
)

const (
	cstFalse = iota
	cstTrue
	cstClk
	cstCount
)

func isConstant(name string) bool {
	return name == False || name == True || name == Clk
}

// A Socket maps a part's pin names to pin numbers in a circuit.
//
type Socket struct {
	m map[string]int
	c *Circuit
}

func newSocket(c *Circuit) *Socket {
	return &Socket{
		m: map[string]int{False: cstFalse, True: cstTrue, Clk: cstClk},
		c: c,
	}
}

// Pin returns the pin number allocated to the given pin name.
// This function panics if the pin does not exist.
//
func (s *Socket) Pin(name string) int {
	n, ok := s.m[name]
	if !ok {
		panic("pin " + name + " does not exist")
	}
	return n
}

// PinOrNew returns the pin number allocated to the given pin name.
// If no such pin exists a new one is allocated.
//
func (s *Socket) PinOrNew(name string) int {
	n, ok := s.m[name]
	if !ok {
		n = s.c.allocPin()
		s.m[name] = n
	}
	return n
}

// Bus returns the pin numbers allocated to the given bus name. Pin 0 is the
// least significant bit.
// This function panics if any of the bus pins does not exist.
//
func (s *Socket) Bus(name string, bits int) []int {
	out := make([]int, bits)
	for i := range out {
		out[i] = s.Pin(BusPinName(name, i))
	}
	return out
}

// BusPinName returns the name of pin i in bus.
//
func BusPinName(bus string, i int) string {
	return bus + "[" + strconv.Itoa(i) + "]"
}

// mount mounts p into s, allocating wires as necessary, and records its
// connections in nl.
//
func (s *Socket) mount(p *Part, nl *netlist) ([]Component, error) {
	sub := newSocket(s.c)
	for _, cn := range p.conns() {
		switch {
		case p.isInput(cn.Pin):
			if _, ok := sub.m[cn.Pin]; ok {
				return nil, errors.New("input pin " + cn.Pin + " connected to more than one wire")
			}
			sub.m[cn.Pin] = s.PinOrNew(cn.Wire)
			nl.use(cn.Wire, p.Name+"."+cn.Pin)
		case p.isOutput(cn.Pin):
			if isConstant(cn.Wire) {
				return nil, errors.New("output pin " + cn.Pin + " connected to constant " + cn.Wire)
			}
			if _, ok := sub.m[cn.Pin]; ok {
				return nil, errors.New("output pin " + cn.Pin + " connected to more than one wire")
			}
			if err := nl.drive(cn.Wire, p.Name+"."+cn.Pin); err != nil {
				return nil, err
			}
			sub.m[cn.Pin] = s.PinOrNew(cn.Wire)
		default:
			return nil, errors.New("invalid pin name " + cn.Pin + " for part " + p.Name)
		}
	}
	// unconnected inputs read False, unconnected outputs get a private wire.
	for _, in := range p.Inputs {
		if _, ok := sub.m[in]; !ok {
			sub.m[in] = cstFalse
		}
	}
	for _, o := range p.Outputs {
		if _, ok := sub.m[o]; !ok {
			sub.m[o] = s.c.allocPin()
		}
	}
	return p.Mount(sub), nil
}
