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

// Package handler implements the stream id -> waiter correlation table: the
// point where the session's inbound demultiplexer hands payloads and
// errors back to the goroutine that initiated a request.
package handler

import (
	"sync"
	"sync/atomic"

	"github.com/rsocket-core/rsocket/rsocket/payload"
)

// Kind tags which of the three interaction shapes a Handler waits for.
type Kind int

const (
	// KindRequest resolves exactly once, on PAYLOAD+COMPLETE or ERROR.
	KindRequest Kind = iota
	// KindStream receives zero or more NEXT payloads, closed on
	// COMPLETE/ERROR/CANCEL.
	KindStream
	// KindChannel is bidirectional; Remaining tracks half-closes left
	// (starts at 2: local send-complete, remote send-complete).
	KindChannel
)

// Result is what a KindRequest handler's Reply channel carries.
type Result struct {
	Payload payload.Payload
	Err     error
}

// Handler is the table entry for one outstanding locally initiated
// stream. Streams the peer initiates, channels included, are not kept in
// the table.
type Handler struct {
	Kind Kind

	// Reply is used by KindRequest: buffered 1, written to exactly once.
	Reply chan Result

	// Sink is used by KindStream and KindChannel: unbounded-ish multi-shot
	// delivery channel, closed when the sequence ends.
	Sink chan payload.Payload

	// SinkErr carries the terminal error for a Stream/Channel sink, valid
	// only after Sink is closed. Written at most once before close.
	SinkErr *error

	// remaining is the Channel half-close counter; unused for other kinds.
	// Atomic because the inbound dispatch loop (remote half-close) and the
	// local outbound drain goroutine (local half-close) decrement it from
	// two different goroutines.
	remaining atomic.Int32

	// resolveOnce/closeSinkOnce make Resolve/CloseSink safe to call more
	// than once: session teardown and normal completion can race to
	// terminate the same handler (e.g. a CANCEL crossing a COMPLETE in
	// flight), and only the first one should take effect.
	resolveOnce   sync.Once
	closeSinkOnce sync.Once

	// sinkMu/sinkClosed admit or refuse a Push; sinkDone lets a Push that's
	// already blocked on a full Sink give up instead of wedging the inbound
	// dispatch loop once CloseSink has been called. sinkWG tracks Push calls
	// that were admitted before sinkClosed flipped, so CloseSink can wait for
	// all of them to finish their send attempt before it closes Sink --
	// closing a channel a goroutine may still be sending on panics.
	sinkMu     sync.Mutex
	sinkClosed bool
	sinkDone   chan struct{}
	sinkWG     sync.WaitGroup
}

// NewRequest builds a one-shot Request handler.
func NewRequest() *Handler {
	return &Handler{Kind: KindRequest, Reply: make(chan Result, 1)}
}

// NewStream builds a multi-shot Stream handler with a short buffered sink;
// consumers are expected to drain promptly, and CloseSink unblocks a Push
// that's waiting on a full buffer rather than leaving it wedged.
func NewStream() *Handler {
	return &Handler{Kind: KindStream, Sink: make(chan payload.Payload, 16), sinkDone: make(chan struct{})}
}

// NewChannel builds a Channel handler; the half-close counter starts at 2
// per the half-close protocol (local completes, remote completes).
func NewChannel() *Handler {
	h := &Handler{Kind: KindChannel, Sink: make(chan payload.Payload, 16), sinkDone: make(chan struct{})}
	h.remaining.Store(2)
	return h
}

// DecrementRemaining records one half-close (local or remote) and returns
// the count still outstanding; callers remove the table entry once it
// reaches zero.
func (h *Handler) DecrementRemaining() int32 {
	return h.remaining.Add(-1)
}

// Resolve completes a Request handler; only the first call takes effect.
func (h *Handler) Resolve(p payload.Payload, err error) {
	h.resolveOnce.Do(func() {
		h.Reply <- Result{Payload: p, Err: err}
		close(h.Reply)
	})
}

// Push delivers one item to a Stream/Channel sink. It is a no-op once
// CloseSink has been called, and gives up waiting (without sending) if
// CloseSink is called while the buffer is full and a consumer hasn't
// drained it -- a stalled stream no longer wedges the caller forever.
func (h *Handler) Push(p payload.Payload) {
	h.sinkMu.Lock()
	if h.sinkClosed {
		h.sinkMu.Unlock()
		return
	}
	h.sinkWG.Add(1)
	h.sinkMu.Unlock()
	defer h.sinkWG.Done()

	select {
	case h.Sink <- p:
	case <-h.sinkDone:
	}
}

// CloseSink terminates a Stream/Channel sink, optionally with an error the
// consumer can observe via Err after the channel drains. Only the first
// call takes effect. It waits for every Push admitted before the close to
// finish its send attempt before closing Sink, so a Push can never race a
// close of the same channel.
func (h *Handler) CloseSink(err error) {
	h.closeSinkOnce.Do(func() {
		if err != nil {
			h.SinkErr = &err
		}
		h.sinkMu.Lock()
		h.sinkClosed = true
		h.sinkMu.Unlock()

		close(h.sinkDone)
		h.sinkWG.Wait()
		close(h.Sink)
	})
}
