// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/spisim"
	"github.com/db47h/spisim/circuit"
	"github.com/db47h/spisim/device"
	"github.com/db47h/spisim/fifo"
)

// SPI pin names.
const (
	pRst  = "rst"
	pEn   = "en"
	pMISO = "miso"
	pCPOL = "cpol"
	pCPHA = "cpha"
	pLSB  = "lsb"
	pOvr  = "ovr"
	pDiv  = "div"
	pCmd  = "cmd"
	pSCLK = "sclk"
	pMOSI = "mosi"
	pSSn  = "ssn"
	pDone = "done"
	pRReq = "rreq"
	pSt   = "state"
	pRx   = "rx"
)

// Master returns an SPI controller part built around core and fed by q.
//
// The core is ticked once per clock cycle, on the raising edge of Clk, and q
// is clocked with the read request of that tick. Bytes must be pushed to q
// between clock cycles.
//
//	Inputs: rst, en, miso, cpol, cpha, lsb, ovr, div[8], cmd[8]
//	Outputs: sclk, mosi, ssn, done, rreq, state[2], rx[64]
//
// sclk, mosi, ssn and state show the registered state for the upcoming core
// tick, so that a peripheral clocked on the falling edge of Clk can answer on
// miso in time. done, rreq and rx are the outputs of the last tick.
//
func Master(core *spisim.Core, q *fifo.Queue) circuit.NewPartFn {
	p := &circuit.PartSpec{
		Name:    "SPIMaster",
		Inputs:  append([]string{pRst, pEn, pMISO, pCPOL, pCPHA, pLSB, pOvr}, bus(8, pDiv, pCmd)...),
		Outputs: append([]string{pSCLK, pMOSI, pSSn, pDone, pRReq}, append(bus(2, pSt), bus(64, pRx)...)...),
		Mount: func(s *circuit.Socket) []circuit.Component {
			rst, en, miso := s.Pin(pRst), s.Pin(pEn), s.Pin(pMISO)
			cpol, cpha, lsb, ovr := s.Pin(pCPOL), s.Pin(pCPHA), s.Pin(pLSB), s.Pin(pOvr)
			div, cmd := s.Bus(pDiv, 8), s.Bus(pCmd, 8)
			sclk, mosi, ssn := s.Pin(pSCLK), s.Pin(pMOSI), s.Pin(pSSn)
			done, rreq := s.Pin(pDone), s.Pin(pRReq)
			st, rx := s.Bus(pSt, 2), s.Bus(pRx, 64)

			var out spisim.Outputs
			lines, state := core.Lines(spisim.Config{}), core.State()
			return []circuit.Component{
				func(c *circuit.Circuit) {
					if c.AtTick() {
						cfg := spisim.Config{
							Divisor:  uint8(Uint64(c, div)),
							Polarity: c.Get(cpol),
							Phase:    c.Get(cpha),
							LSBFirst: c.Get(lsb),
							Override: c.Get(ovr),
							Command:  uint8(Uint64(c, cmd)),
						}
						out = core.Tick(spisim.Inputs{
							Reset:      c.Get(rst),
							Enable:     c.Get(en),
							Config:     cfg,
							QueueData:  q.Data(),
							QueueEmpty: q.Empty(),
							MISO:       c.Get(miso),
						})
						if c.Get(rst) {
							q.Reset()
						} else {
							q.Tick(out.ReadRequest)
						}
						lines, state = core.Lines(cfg), core.State()
					}
					c.Set(sclk, lines.SCLK)
					c.Set(mosi, lines.MOSI)
					c.Set(ssn, lines.SSn())
					c.Set(done, out.Done)
					c.Set(rreq, out.ReadRequest)
					SetUint64(c, st, uint64(state))
					SetUint64(c, rx, out.RxData)
				},
			}
		},
	}
	return p.NewPart
}

// Slave returns a part connecting dev to the SPI lines. dev is stepped once
// per clock cycle, on the falling edge of Clk.
//
//	Inputs: sclk, mosi, ssn
//	Outputs: miso
//
func Slave(dev device.Peripheral) circuit.NewPartFn {
	p := &circuit.PartSpec{
		Name:    "SPISlave",
		Inputs:  []string{pSCLK, pMOSI, pSSn},
		Outputs: []string{pMISO},
		Mount: func(s *circuit.Socket) []circuit.Component {
			sclk, mosi, ssn, miso := s.Pin(pSCLK), s.Pin(pMOSI), s.Pin(pSSn), s.Pin(pMISO)
			var v bool
			return []circuit.Component{
				func(c *circuit.Circuit) {
					if c.AtTock() {
						v = dev.Step(spisim.Lines{
							SCLK: c.Get(sclk),
							MOSI: c.Get(mosi),
							CS:   !c.Get(ssn),
						})
					}
					c.Set(miso, v)
				},
			}
		},
	}
	return p.NewPart
}
