// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuit

import "github.com/pkg/errors"

// A Component is a closure mounted in a circuit. It is called once per
// simulation step and reads wires with Get and drives them with Set.
//
type Component func(c *Circuit)

// A MountFn mounts a part into socket s. It looks up the pin numbers assigned
// to the part's pins and returns the components that drive them.
//
// A Not gate is defined like this:
//
//	not := &PartSpec{
//		Name: "Not",
//		Inputs: []string{"in"},
//		Outputs: []string{"out"},
//		Mount: func (s *Socket) []Component {
//			in, out := s.Pin("in"), s.Pin("out")
//			return []Component{
//				func (c *Circuit) { c.Set(out, !c.Get(in)) },
//			}
//		}}
//
type MountFn func(s *Socket) []Component

// A PartSpec is the blueprint of a part: its pin names and mount function.
//
type PartSpec struct {
	Name string
	// Pin names. A bus is listed pin by pin: "rx[0]", "rx[1]"...
	Inputs  []string
	Outputs []string
	Mount   MountFn
}

// NewPart returns a part for p wired as described by connections. It panics
// if the connection string is malformed, which is a programming error.
//
func (p *PartSpec) NewPart(connections string) Part {
	cs, err := ParseConnections(connections)
	if err != nil {
		panic(errors.Wrap(err, p.Name))
	}
	return Part{p, cs}
}

func has(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (p *PartSpec) isInput(name string) bool  { return has(p.Inputs, name) }
func (p *PartSpec) isOutput(name string) bool { return has(p.Outputs, name) }

// A NewPartFn returns a new Part given a connection string. See
// ParseConnections for the syntax.
//
type NewPartFn func(c string) Part

// A Part is a PartSpec together with its connections in a circuit.
//
type Part struct {
	*PartSpec
	Conns []Connection
}

// Parts is a convenience wrapper for []Part.
//
type Parts []Part
