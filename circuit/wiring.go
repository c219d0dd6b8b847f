// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuit

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Connection connects a part pin to a wire in the circuit.
//
type Connection struct {
	Pin  string
	Wire string
}

// ParseConnections parses a connection string of the form:
//
//	"pin=wire, bus[0..3]=wire[4..7], ..."
//
// A range on the pin side must match a range of the same size on the wire
// side, or a single wire, in which case all pins are connected to that wire.
// A bus name without index or range is expanded when the part is mounted: it
// connects every pin of the bus to the wire bus of the same size.
//
func ParseConnections(s string) ([]Connection, error) {
	var r []Connection
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		i := strings.IndexRune(c, '=')
		if i < 0 {
			return nil, errors.New("invalid pin mapping " + c)
		}
		k, v := strings.TrimSpace(c[:i]), strings.TrimSpace(c[i+1:])
		if k == "" || v == "" {
			return nil, errors.New("invalid pin mapping " + k + "=" + v)
		}
		ks, err := expandRange(k)
		if err != nil {
			return nil, errors.Wrap(err, "expand key "+k)
		}
		vs, err := expandRange(v)
		if err != nil {
			return nil, errors.Wrap(err, "expand value "+v)
		}
		switch {
		case len(ks) == len(vs):
			for i := range ks {
				r = append(r, Connection{ks[i], vs[i]})
			}
		case len(vs) == 1:
			// many to one
			for _, k := range ks {
				r = append(r, Connection{k, vs[0]})
			}
		default:
			return nil, errors.New("pin count mismatch in pin mapping: " + k + "=" + v)
		}
	}
	return r, nil
}

func expandRange(name string) ([]string, error) {
	i := strings.IndexRune(name, '[')
	if i < 0 {
		return []string{name}, nil
	}
	bus := name[:i]
	if bus == "" {
		return nil, errors.New("empty bus name")
	}
	n := name[i+1:]
	i = strings.Index(n, "..")
	if i < 0 {
		return []string{name}, nil
	}
	start, err := strconv.Atoi(n[:i])
	if err != nil {
		return nil, err
	}
	n = n[i+2:]
	i = strings.IndexRune(n, ']')
	if i < 0 {
		return nil, errors.New("no terminating ] in bus range")
	}
	end, err := strconv.Atoi(n[:i])
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, errors.Errorf("invalid bus range %d..%d", start, end)
	}
	r := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		r = append(r, BusPinName(bus, i))
	}
	return r, nil
}

// conns returns the connections of p with whole bus connections expanded.
//
func (p *Part) conns() []Connection {
	var r []Connection
	for _, c := range p.Conns {
		if p.isInput(c.Pin) || p.isOutput(c.Pin) || strings.ContainsRune(c.Pin, '[') {
			r = append(r, c)
			continue
		}
		n := 0
		for p.isInput(BusPinName(c.Pin, n)) || p.isOutput(BusPinName(c.Pin, n)) {
			r = append(r, Connection{BusPinName(c.Pin, n), BusPinName(c.Wire, n)})
			n++
		}
		if n == 0 {
			// not a bus, let mount report the invalid pin.
			r = append(r, c)
		}
	}
	return r
}

// netlist tracks which part pins drive and use each wire.
//
type netlist struct {
	drivers map[string]string
	users   map[string][]string
}

func newNetlist() *netlist {
	return &netlist{
		drivers: make(map[string]string),
		users:   make(map[string][]string),
	}
}

func (nl *netlist) drive(wire, pin string) error {
	if d, ok := nl.drivers[wire]; ok {
		return errors.New("wire " + wire + " driven by both " + d + " and " + pin)
	}
	nl.drivers[wire] = pin
	return nil
}

func (nl *netlist) use(wire, pin string) {
	if isConstant(wire) {
		return
	}
	nl.users[wire] = append(nl.users[wire], pin)
}

// check returns an error if a wire is used but never driven.
//
func (nl *netlist) check() error {
	var undriven []string
	for w := range nl.users {
		if _, ok := nl.drivers[w]; !ok {
			undriven = append(undriven, w)
		}
	}
	if len(undriven) == 0 {
		return nil
	}
	sort.Strings(undriven)
	w := undriven[0]
	return errors.New("pin " + nl.users[w][0] + " not connected to any output (wire " + w + ")")
}
