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

	"github.com/rsocket-core/rsocket/internal/rescue"
	"github.com/rsocket-core/rsocket/rsocket/frame"
	"github.com/rsocket-core/rsocket/rsocket/handler"
	"github.com/rsocket-core/rsocket/rsocket/metrics"
	"github.com/rsocket-core/rsocket/rsocket/payload"
	"github.com/rsocket-core/rsocket/rsocket/responder"
	"github.com/rsocket-core/rsocket/rsocket/rerrors"
)

// The methods below satisfy responder.Requester, so a Session can be
// handed to an Acceptor as the "self" a server-initiated Responder calls
// back into, and can equally be used directly by a pure client.

// SendSetup emits the connection-establishing SETUP frame. Callers acting
// as a pure requester (no peer-driven Acceptor needed) must call this
// exactly once, before issuing any other request, since nothing else on
// this side originates it.
func (s *Session) SendSetup(setup payload.Setup) {
	flags := frame.Flags(0)
	if setup.Metadata != nil {
		flags |= frame.FlagMetadata
	}
	s.sendFrame(frame.New(0, &frame.Setup{
		Flags:             flags,
		MajorVersion:      1,
		MinorVersion:      0,
		KeepaliveInterval: setup.KeepaliveInterval,
		MaxLifetime:       setup.KeepaliveLifetime,
		MetadataMimeType:  setup.MetadataMimeType,
		DataMimeType:      setup.DataMimeType,
		Metadata:          setup.Metadata,
		Data:              setup.Data,
	}, 0))
}

// FireAndForget sends p with no expectation of a reply. Returns an error
// only if the session is already closed; once frames are on the wire there is no
// delivery confirmation, by protocol design.
func (s *Session) FireAndForget(ctx context.Context, p payload.Payload) error {
	if s.ctx.Err() != nil {
		return rerrors.ConnectionClosed
	}
	sid := s.ids.Next()
	build := func(data, metadata []byte, hasMeta bool) frame.Body {
		return &frame.RequestFNF{Data: data, Metadata: metadata, HasMetadata: hasMeta}
	}
	s.sendFragmentedPayload(sid, p, build, false, false)
	return nil
}

// MetadataPush sends a connection-level, streamless metadata blob.
func (s *Session) MetadataPush(ctx context.Context, p payload.Payload) error {
	if s.ctx.Err() != nil {
		return rerrors.ConnectionClosed
	}
	s.sendFrame(frame.New(0, &frame.MetadataPush{Metadata: p.Metadata}, 0))
	return nil
}

// RequestResponse sends p and blocks for exactly one reply, an error, or
// ctx/session cancellation.
func (s *Session) RequestResponse(ctx context.Context, p payload.Payload) (payload.Payload, error) {
	if s.ctx.Err() != nil {
		return payload.Payload{}, rerrors.ConnectionClosed
	}

	sid := s.ids.Next()
	h := handler.NewRequest()
	s.table.Insert(sid, h)
	metrics.HandlerTableSize.Set(float64(s.table.Len()))

	build := func(data, metadata []byte, hasMeta bool) frame.Body {
		return &frame.RequestResponse{Data: data, Metadata: metadata, HasMetadata: hasMeta}
	}
	s.sendFragmentedPayload(sid, p, build, false, false)

	select {
	case res, ok := <-h.Reply:
		if !ok {
			return payload.Payload{}, rerrors.ErrNoHandler
		}
		return res.Payload, res.Err
	case <-ctx.Done():
		s.cancelOutboundRequest(sid)
		return payload.Payload{}, ctx.Err()
	case <-s.ctx.Done():
		return payload.Payload{}, rerrors.ConnectionClosed
	}
}

// RequestStream sends p and returns a Subscription yielding zero or more
// replies. The caller drives completion by draining Payloads to
// exhaustion or calling Subscription.Cancel; there is no per-item
// blocking call to mirror ctx cancellation mid-stream (see
// responder.Subscription's doc for why).
func (s *Session) RequestStream(ctx context.Context, p payload.Payload) (*responder.Subscription, error) {
	if s.ctx.Err() != nil {
		return nil, rerrors.ConnectionClosed
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sid := s.ids.Next()
	h := handler.NewStream()
	s.table.Insert(sid, h)
	metrics.ActiveStreams.Inc()
	metrics.HandlerTableSize.Set(float64(s.table.Len()))

	build := func(data, metadata []byte, hasMeta bool) frame.Body {
		return &frame.RequestStream{InitialRequestN: defaultInitialRequestN, Data: data, Metadata: metadata, HasMetadata: hasMeta}
	}
	s.sendFragmentedPayload(sid, p, build, false, false)

	return responder.NewSubscription(h.Sink, func() { s.cancelOutboundStream(sid) }, sinkErrFn(h)), nil
}

// RequestChannel sends first as the head frame, then spawns a goroutine
// that drains in and emits it as the local half of the channel. Returns
// a Subscription carrying the remote half.
func (s *Session) RequestChannel(ctx context.Context, first payload.Payload, in <-chan payload.Payload) (*responder.Subscription, error) {
	if s.ctx.Err() != nil {
		return nil, rerrors.ConnectionClosed
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sid := s.ids.Next()
	h := handler.NewChannel()
	s.table.Insert(sid, h)
	metrics.ActiveStreams.Inc()
	metrics.HandlerTableSize.Set(float64(s.table.Len()))

	build := func(data, metadata []byte, hasMeta bool) frame.Body {
		return &frame.RequestChannel{InitialRequestN: defaultInitialRequestN, Data: data, Metadata: metadata, HasMetadata: hasMeta}
	}
	s.sendFragmentedPayload(sid, first, build, false, false)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer rescue.HandleCrash()
		s.drainLocalChannelHalf(sid, in)
	}()

	return responder.NewSubscription(h.Sink, func() { s.cancelOutboundStream(sid) }, sinkErrFn(h)), nil
}

func (s *Session) drainLocalChannelHalf(sid uint32, in <-chan payload.Payload) {
	for {
		select {
		case p, ok := <-in:
			if !ok {
				s.sendFrame(frame.New(sid, &frame.Payload{Complete: true}, 0))
				s.finishLocalChannelHalf(sid)
				return
			}
			s.sendFragmentedPayload(sid, p, payloadHeadBuilder, true, false)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) finishLocalChannelHalf(sid uint32) {
	h, ok := s.table.Get(sid)
	if !ok {
		return
	}
	if h.DecrementRemaining() <= 0 {
		if _, ok := s.table.Remove(sid); ok {
			decStreamMetrics(h, s.table)
		}
	}
}

func sinkErrFn(h *handler.Handler) func() error {
	return func() error {
		if h.SinkErr != nil {
			return *h.SinkErr
		}
		return nil
	}
}

// cancelOutboundRequest aborts a still-pending RequestResponse call.
func (s *Session) cancelOutboundRequest(sid uint32) {
	if _, ok := s.table.Remove(sid); ok {
		s.sendFrame(frame.New(sid, &frame.Cancel{}, 0))
		metrics.HandlerTableSize.Set(float64(s.table.Len()))
	}
}

// cancelOutboundStream aborts a still-active RequestStream/RequestChannel
// subscription, per Subscription.Cancel's contract.
func (s *Session) cancelOutboundStream(sid uint32) {
	h, ok := s.table.Remove(sid)
	if !ok {
		return
	}
	s.sendFrame(frame.New(sid, &frame.Cancel{}, 0))
	decStreamMetrics(h, s.table)
	h.CloseSink(rerrors.Canceled)
}
