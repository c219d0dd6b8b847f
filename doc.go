// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package spisim implements a cycle accurate SPI controller core.

The core converts a byte stream, read from an external queue or from an
override command register, into timed serial output and shifts the serial
input into a 64 bits rolling accumulator. It owns all the protocol timing:
baud rate generation, chip select, clock polarity and phase, bit order and the
four phase transfer cycle (Idle, Setup, Data, Hold).

The whole core lives in a single clock domain. A simulation advances with
Core.Tick, which evaluates every combinational signal from the registers of the
previous tick and the current inputs, then commits the next register frame at
once. No component ever observes a partial update from another one.

The byte queue and the register file are not part of the core. They are seen
as plain input signals (see Inputs). Package fifo provides a queue model with
the expected read timing, package device provides peripheral models and
package bus wraps the whole thing into a periph.io / TinyGo SPI port.

*/
package spisim
