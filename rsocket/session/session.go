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

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rsocket-core/rsocket/internal/rescue"
	"github.com/rsocket-core/rsocket/rsocket/fragment"
	"github.com/rsocket-core/rsocket/rsocket/frame"
	"github.com/rsocket-core/rsocket/rsocket/handler"
	"github.com/rsocket-core/rsocket/rsocket/keepalive"
	"github.com/rsocket-core/rsocket/rsocket/metrics"
	"github.com/rsocket-core/rsocket/rsocket/payload"
	"github.com/rsocket-core/rsocket/rsocket/responder"
	"github.com/rsocket-core/rsocket/rsocket/rerrors"
	"github.com/rsocket-core/rsocket/rsocket/streamid"
)

// defaultInitialRequestN is placed on every outbound REQUEST_STREAM and
// REQUEST_CHANNEL head frame. Inbound REQUEST_N is only logged (see
// handleRequestN) and flow control is not enforced, so this is a
// permissive placeholder rather than a tuned value.
const defaultInitialRequestN = 1<<31 - 1

// defaultMTU is used when Config.MTU is left at zero.
const defaultMTU = 16 * 1024

// Config controls how a Session negotiates and drives one duplex
// connection.
type Config struct {
	// Allocator mints stream ids for requests this side initiates. Use
	// streamid.Client() for the side that will also send SETUP,
	// streamid.Server() for the side that accepts it. Defaults to
	// streamid.Client() if nil.
	Allocator *streamid.Allocator

	// Acceptor is consulted exactly once, at the first inbound SETUP
	// frame, to install the Responder that serves the peer's requests.
	// Defaults to responder.EmptyAcceptor(), which rejects
	// request/response and request/stream and completes request/channel
	// with no items. Sessions that only ever act as a
	// requester (never receive SETUP) can leave this at the default.
	Acceptor responder.Acceptor

	// MTU bounds the wire size of any single frame this side emits;
	// larger payloads are split into a FOLLOW chain. Defaults to 16KiB.
	MTU int

	// KeepaliveInterval, if positive, originates a RESPOND KEEPALIVE on
	// this cadence. Typically set by the SETUP-sending side only.
	KeepaliveInterval time.Duration

	// KeepaliveLifetime, if positive, closes the session when no inbound
	// frame of any kind has been observed for this long.
	KeepaliveLifetime time.Duration

	// Logger receives structured diagnostics; defaults to a no-op.
	Logger Logger
}

// Session is one duplex RSocket connection: an inbound frame
// demultiplexer, a client-facing request issuer, and the correlation
// state tying the two together. It satisfies responder.Requester so an
// Acceptor can hand it back to the Responder it builds for
// server-initiated calls.
type Session struct {
	cfg      Config
	ids      *streamid.Allocator
	slot     *responder.Slot
	table    *handler.Table
	splitter fragment.Splitter
	out      chan<- frame.Frame
	log      Logger

	// pending holds in-progress inbound reassembly chains. Owned
	// exclusively by the Serve goroutine; never touched concurrently.
	pending map[uint32]*pendingJoin

	// mu guards the two side-tables below, which are written by Serve
	// and read/cleaned-up by spawned responder tasks.
	mu              sync.Mutex
	responderCancel map[uint32]context.CancelFunc
	inboundChannels map[uint32]chan payload.Payload

	setupSeen atomic.Bool

	wd   *keepalive.Watchdog
	orig *keepalive.Originator

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type pendingJoin struct {
	j               *fragment.Joiner
	initialRequestN uint32
}

// New constructs a Session bound to out. parent governs the session's
// overall lifetime (canceling it is equivalent to calling Close).
// Serve must be called separately to start consuming an inbound frame
// source and actually run the engine.
func New(parent context.Context, cfg Config, out chan<- frame.Frame) *Session {
	if cfg.Allocator == nil {
		cfg.Allocator = streamid.Client()
	}
	if cfg.Acceptor == nil {
		cfg.Acceptor = responder.EmptyAcceptor()
	}
	if cfg.MTU <= 0 {
		cfg.MTU = defaultMTU
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		cfg:             cfg,
		ids:             cfg.Allocator,
		slot:            responder.NewSlot(),
		table:           handler.New(),
		splitter:        fragment.Splitter{MTU: cfg.MTU},
		out:             out,
		log:             cfg.Logger,
		pending:         make(map[uint32]*pendingJoin),
		responderCancel: make(map[uint32]context.CancelFunc),
		inboundChannels: make(map[uint32]chan payload.Payload),
		ctx:             ctx,
		cancel:          cancel,
	}

	if cfg.KeepaliveLifetime > 0 {
		s.wd = keepalive.NewWatchdog(cfg.KeepaliveLifetime, func() {
			s.log.Warnf("keepalive lifetime exceeded, closing session")
			s.Close()
		})
	}
	if cfg.KeepaliveInterval > 0 {
		s.orig = keepalive.NewOriginator(cfg.KeepaliveInterval, func() {
			s.sendFrame(frame.New(0, &frame.Keepalive{Respond: true}, 0))
		})
	}

	return s
}

// SetAcceptor installs the Acceptor consulted by the next inbound SETUP.
// Only meaningful when called before Serve observes that frame.
func (s *Session) SetAcceptor(a responder.Acceptor) {
	s.cfg.Acceptor = a
}

// Done is closed as soon as the session's context is canceled (by Close
// or by the parent context); teardown may still be in progress then.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Serve drains in, dispatching every frame, until in closes, a fatal
// protocol violation is observed, or the session's context is canceled.
// It blocks; callers typically run it in its own goroutine per
// connection. Close is always called before Serve returns.
func (s *Session) Serve(in Inbound) error {
	defer s.Close()

	if s.wd != nil {
		s.wg.Add(1)
		go func() { defer s.wg.Done(); s.wd.Run() }()
	}
	if s.orig != nil {
		s.wg.Add(1)
		go func() { defer s.wg.Done(); s.orig.Run() }()
	}

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case f, ok := <-in:
			if !ok {
				return nil
			}
			if s.wd != nil {
				s.wd.Touch()
			}
			metrics.FramesReceived.WithLabelValues(f.Type().String()).Inc()
			if err := s.dispatch(f); err != nil {
				s.log.Errorf("fatal protocol error: %v", err)
				s.sendFrame(frame.New(0, &frame.Error{Code: frame.ErrorConnectionError, Data: err.Error()}, 0))
				return err
			}
		}
	}
}

// Close tears the session down idempotently: it cancels every in-flight
// responder task, resolves every outstanding local waiter with
// ConnectionClosed, and stops the keepalive goroutines. Safe to call
// more than once and from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.wd != nil {
			s.wd.Stop()
		}
		if s.orig != nil {
			s.orig.Stop()
		}
		for _, h := range s.table.Clear() {
			terminateHandler(h, rerrors.ConnectionClosed)
			if h.Kind != handler.KindRequest {
				metrics.ActiveStreams.Dec()
			}
		}
		metrics.HandlerTableSize.Set(0)
	})
	return nil
}

func terminateHandler(h *handler.Handler, err error) {
	switch h.Kind {
	case handler.KindRequest:
		h.Resolve(payload.Payload{}, err)
	case handler.KindStream, handler.KindChannel:
		h.CloseSink(err)
	}
}

func (s *Session) sendFrame(f frame.Frame) {
	select {
	case s.out <- f:
		metrics.FramesSent.WithLabelValues(f.Type().String()).Inc()
	case <-s.ctx.Done():
	}
}

func (s *Session) sendError(sid uint32, err error) {
	code := frame.ErrorApplicationError
	msg := err.Error()
	if re, ok := err.(*rerrors.Error); ok {
		code = re.Code
		msg = re.Data
	}
	s.sendFrame(frame.New(sid, &frame.Error{Code: code, Data: msg}, 0))
}

func (s *Session) spawnResponderTask(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer rescue.HandleCrash()
		fn()
	}()
}

func payloadHeadBuilder(data, metadata []byte, hasMeta bool) frame.Body {
	return &frame.Payload{Data: data, Metadata: metadata, HasMetadata: hasMeta}
}

func (s *Session) setResponderCancel(sid uint32, cancel context.CancelFunc) {
	s.mu.Lock()
	s.responderCancel[sid] = cancel
	s.mu.Unlock()
}

func (s *Session) popResponderCancel(sid uint32) (context.CancelFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.responderCancel[sid]
	if ok {
		delete(s.responderCancel, sid)
	}
	return c, ok
}

func (s *Session) clearResponderCancel(sid uint32) {
	s.mu.Lock()
	delete(s.responderCancel, sid)
	s.mu.Unlock()
}

func (s *Session) inboundChannelRegister(sid uint32, ch chan payload.Payload) {
	s.mu.Lock()
	s.inboundChannels[sid] = ch
	s.mu.Unlock()
}

func (s *Session) inboundChannelGet(sid uint32) (chan payload.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.inboundChannels[sid]
	return ch, ok
}

func (s *Session) inboundChannelRemove(sid uint32) {
	s.mu.Lock()
	delete(s.inboundChannels, sid)
	s.mu.Unlock()
}
