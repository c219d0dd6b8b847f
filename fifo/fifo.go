// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package fifo provides a model of the byte queue feeding an SPI controller
// core.
//
// The queue has standard (non fall-through) read timing: a read pulse on tick
// t pops the head, and the popped byte is presented by Data from tick t+1
// onwards.
//
package fifo

import (
	"github.com/pkg/errors"
)

// ErrFull is returned by Push when the queue is full.
//
var ErrFull = errors.New("fifo: queue full")

// Queue is a bounded byte FIFO.
//
type Queue struct {
	buf  []byte
	head int
	n    int
	data byte
}

// New returns a new queue of the given depth. It panics if depth < 1.
//
func New(depth int) *Queue {
	if depth < 1 {
		panic("fifo: invalid depth")
	}
	return &Queue{buf: make([]byte, depth)}
}

// Push appends b to the queue.
//
func (q *Queue) Push(b byte) error {
	if q.Full() {
		return ErrFull
	}
	q.buf[(q.head+q.n)%len(q.buf)] = b
	q.n++
	return nil
}

// Write pushes as many bytes from p as the queue can hold and returns the
// number of bytes written. It returns ErrFull if not all bytes were written.
//
func (q *Queue) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := q.Push(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Empty returns true if the queue holds no bytes.
//
func (q *Queue) Empty() bool { return q.n == 0 }

// Full returns true if no more bytes can be pushed.
//
func (q *Queue) Full() bool { return q.n == len(q.buf) }

// Len returns the number of queued bytes.
//
func (q *Queue) Len() int { return q.n }

// Cap returns the queue depth.
//
func (q *Queue) Cap() int { return len(q.buf) }

// Data returns the byte popped by the last read pulse.
//
func (q *Queue) Data() byte { return q.data }

// Tick advances the queue by one clock tick. If read is true and the queue is
// not empty, the head is popped and presented on Data. Reading an empty queue
// has no effect.
//
func (q *Queue) Tick(read bool) {
	if !read || q.n == 0 {
		return
	}
	q.data = q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
}

// Reset empties the queue and clears its data output.
//
func (q *Queue) Reset() {
	q.head, q.n, q.data = 0, 0, 0
}
