// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport adapts a net.Conn to the frame.Frame channel pair a
// session.Session drives: a bufio-buffered reader goroutine decoding
// inbound frames, and a writer goroutine serializing outbound ones.
package transport

import (
	"bufio"
	"net"
	"sync"

	"github.com/rsocket-core/rsocket/rsocket/frame"
)

// defaultOutboundBuffer bounds how many queued, not yet written frames a slow
// peer can make the writer goroutine queue before backpressure reaches
// the session's sendFrame caller.
const defaultOutboundBuffer = 64

// Conn pumps frame.Frame values between a net.Conn and the channel pair a
// session.Session expects from New/Serve.
type Conn struct {
	nc net.Conn

	in  chan frame.Frame
	out chan frame.Frame

	readErr  error
	writeErr error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewConn wraps nc and starts its reader and writer pumps. Callers drive
// a session with Inbound() and Outbound(), and must call Close when the
// session's Serve call returns.
func NewConn(nc net.Conn) *Conn {
	c := &Conn{
		nc:   nc,
		in:   make(chan frame.Frame, defaultOutboundBuffer),
		out:  make(chan frame.Frame, defaultOutboundBuffer),
		done: make(chan struct{}),
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Inbound is the channel a session.Session.Serve call should drain.
func (c *Conn) Inbound() <-chan frame.Frame { return c.in }

// Outbound is the channel a session.Session should be constructed with as
// its write sink.
func (c *Conn) Outbound() chan<- frame.Frame { return c.out }

// ReadErr reports the error (if any) that ended the reader pump: io.EOF
// on a clean peer disconnect, or a codec/transport error otherwise.
func (c *Conn) ReadErr() error { return c.readErr }

func (c *Conn) readLoop() {
	defer c.wg.Done()
	defer close(c.in)

	r := bufio.NewReaderSize(c.nc, 32*1024)
	for {
		f, err := frame.Decode(r)
		if err != nil {
			c.readErr = err
			return
		}
		select {
		case c.in <- f:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()

	w := bufio.NewWriterSize(c.nc, 32*1024)
	flush := func() {
		if err := w.Flush(); err != nil {
			c.writeErr = err
		}
	}

	for {
		select {
		case f, ok := <-c.out:
			if !ok {
				flush()
				return
			}
			if err := frame.Encode(w, f); err != nil {
				c.writeErr = err
				continue
			}
			if len(c.out) == 0 {
				flush()
			}
		case <-c.done:
			return
		}
	}
}

// Close closes the underlying connection, which unblocks the reader pump
// (its blocking Decode call fails), signals done to unblock the writer
// pump, and waits for both to exit.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.nc.Close()
		c.wg.Wait()
	})
	return err
}
