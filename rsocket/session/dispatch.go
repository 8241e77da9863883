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

	"github.com/rsocket-core/rsocket/rsocket/fragment"
	"github.com/rsocket-core/rsocket/rsocket/frame"
	"github.com/rsocket-core/rsocket/rsocket/handler"
	"github.com/rsocket-core/rsocket/rsocket/metrics"
	"github.com/rsocket-core/rsocket/rsocket/payload"
	"github.com/rsocket-core/rsocket/rsocket/rerrors"
)

// dispatch routes one decoded inbound frame. A non-nil return is a
// fatal, connection-ending protocol violation; everything recoverable
// (unknown stream id, rejected request, peer cancellation) is handled
// in place and returns nil.
func (s *Session) dispatch(f frame.Frame) error {
	sid := f.StreamID()
	if sid == 0 {
		return s.dispatchConnection(f.Body)
	}

	switch b := f.Body.(type) {
	case *frame.Cancel:
		s.handleCancel(sid)
		return nil
	case *frame.RequestN:
		s.handleRequestN(sid, b.N)
		return nil
	case *frame.Error:
		s.handleError(sid, b)
		return nil
	}

	if pj, ok := s.pending[sid]; ok {
		next, complete := bodyNext(f.Body), bodyComplete(f.Body)
		if !pj.j.Push(f) {
			return nil
		}
		delete(s.pending, sid)
		return s.dispatchReassembled(sid, pj.j.FrameType(), pj.j.Payload(), pj.initialRequestN, next, complete)
	}

	if f.Header.Flags.Has(frame.FlagFollow) {
		n, _ := bodyInitialRequestN(f.Body)
		s.pending[sid] = &pendingJoin{j: fragment.NewJoiner(f), initialRequestN: n}
		return nil
	}

	n, _ := bodyInitialRequestN(f.Body)
	next, complete := bodyNext(f.Body), bodyComplete(f.Body)
	return s.dispatchReassembled(sid, f.Header.Type, fragment.PayloadOf(f.Body), n, next, complete)
}

func bodyComplete(b frame.Body) bool {
	switch v := b.(type) {
	case *frame.Payload:
		return v.Complete
	case *frame.RequestChannel:
		return v.Complete
	default:
		return false
	}
}

func bodyNext(b frame.Body) bool {
	if v, ok := b.(*frame.Payload); ok {
		return v.Next
	}
	// every request-shaped head frame carries exactly one logical value,
	// equivalent to NEXT for dispatch purposes.
	switch b.(type) {
	case *frame.RequestResponse, *frame.RequestFNF, *frame.RequestStream, *frame.RequestChannel:
		return true
	default:
		return false
	}
}

func bodyInitialRequestN(b frame.Body) (uint32, bool) {
	switch v := b.(type) {
	case *frame.RequestStream:
		return v.InitialRequestN, true
	case *frame.RequestChannel:
		return v.InitialRequestN, true
	default:
		return 0, false
	}
}

func (s *Session) dispatchConnection(body frame.Body) error {
	switch b := body.(type) {
	case *frame.Setup:
		return s.handleSetup(b)
	case *frame.Keepalive:
		s.handleKeepalive(b)
		return nil
	case *frame.MetadataPush:
		s.spawnResponderTask(func() { s.slot.Get().MetadataPush(s.ctx, b.Metadata) })
		return nil
	case *frame.Lease:
		s.log.Debugf("ignoring inbound LEASE (leasing flow control is unsupported)")
		return nil
	case *frame.Resume:
		s.log.Warnf("rejecting inbound RESUME (session resumption is unsupported)")
		return nil
	case *frame.ResumeOK:
		s.log.Warnf("ignoring inbound RESUME_OK (session resumption is unsupported)")
		return nil
	default:
		return rerrors.ErrProtocol("unexpected connection-level frame %s", body.FrameType())
	}
}

func (s *Session) handleSetup(b *frame.Setup) error {
	if !s.setupSeen.CompareAndSwap(false, true) {
		return rerrors.ErrProtocol("duplicate SETUP frame")
	}

	setup := payload.Setup{
		Payload:           payload.New(b.Data, b.Metadata),
		DataMimeType:      b.DataMimeType,
		MetadataMimeType:  b.MetadataMimeType,
		KeepaliveInterval: b.KeepaliveInterval,
		KeepaliveLifetime: b.MaxLifetime,
	}

	r, err := s.cfg.Acceptor.Accept(s.ctx, setup, s)
	if err != nil {
		s.sendFrame(frame.New(0, &frame.Error{Code: frame.ErrorRejectedSetup, Data: err.Error()}, 0))
		return rerrors.ErrProtocol("acceptor rejected SETUP: %v", err)
	}
	s.slot.Set(r)
	s.log.Infof("session established (data=%s metadata=%s)", b.DataMimeType, b.MetadataMimeType)
	return nil
}

func (s *Session) handleKeepalive(b *frame.Keepalive) {
	if b.Respond {
		s.sendFrame(frame.New(0, &frame.Keepalive{Respond: false, LastPosition: b.LastPosition, Data: b.Data}, 0))
	}
}

func (s *Session) handleRequestN(sid uint32, n uint32) {
	s.log.Debugf("recorded REQUEST_N=%d for stream %d (flow control not enforced)", n, sid)
}

func (s *Session) handleCancel(sid uint32) {
	if cancel, ok := s.popResponderCancel(sid); ok {
		cancel()
		if ch, ok := s.inboundChannelGet(sid); ok {
			close(ch)
			s.inboundChannelRemove(sid)
		}
		return
	}
	if h, ok := s.table.Remove(sid); ok {
		terminateHandler(h, rerrors.Canceled)
		decStreamMetrics(h, s.table)
	}
}

func (s *Session) handleError(sid uint32, b *frame.Error) {
	if h, ok := s.table.Remove(sid); ok {
		terminateHandler(h, rerrors.FromFrame(b))
		decStreamMetrics(h, s.table)
		return
	}
	if cancel, ok := s.popResponderCancel(sid); ok {
		cancel()
		if ch, ok := s.inboundChannelGet(sid); ok {
			close(ch)
			s.inboundChannelRemove(sid)
		}
	}
}

func decStreamMetrics(h *handler.Handler, t *handler.Table) {
	if h.Kind != handler.KindRequest {
		metrics.ActiveStreams.Dec()
	}
	metrics.HandlerTableSize.Set(float64(t.Len()))
}

// dispatchReassembled handles one fully-reassembled logical frame: either
// a fresh request-shaped interaction, or a PAYLOAD addressed to a stream
// already in flight (as a reply we're waiting on, or as data flowing
// into a channel we're serving).
func (s *Session) dispatchReassembled(sid uint32, t frame.Type, p payload.Payload, initialRequestN uint32, next, complete bool) error {
	switch t {
	case frame.TypeRequestFNF:
		s.spawnResponderTask(func() { s.slot.Get().FireAndForget(s.ctx, p) })
	case frame.TypeRequestResponse:
		s.handleRequestResponse(sid, p)
	case frame.TypeRequestStream:
		s.handleRequestStream(sid, p, initialRequestN)
	case frame.TypeRequestChannel:
		s.handleRequestChannel(sid, p, complete)
	case frame.TypePayload:
		s.handlePayload(sid, p, next, complete)
	default:
		return rerrors.ErrProtocol("unexpected stream frame %s", t)
	}
	return nil
}

func (s *Session) handlePayload(sid uint32, p payload.Payload, next, complete bool) {
	if ch, ok := s.inboundChannelGet(sid); ok {
		if next {
			select {
			case ch <- p:
			case <-s.ctx.Done():
			}
		}
		if complete {
			close(ch)
			s.inboundChannelRemove(sid)
		}
		return
	}

	h, ok := s.table.Get(sid)
	if !ok {
		s.log.Warnf("%v: %d", rerrors.ErrUnknownStream, sid)
		return
	}

	switch h.Kind {
	case handler.KindRequest:
		if complete {
			s.table.Remove(sid)
			metrics.HandlerTableSize.Set(float64(s.table.Len()))
			var out payload.Payload
			if next {
				out = p
			}
			h.Resolve(out, nil)
		}
	case handler.KindStream:
		if next {
			h.Push(p)
		}
		if complete {
			s.table.Remove(sid)
			decStreamMetrics(h, s.table)
			h.CloseSink(nil)
		}
	case handler.KindChannel:
		if next {
			h.Push(p)
		}
		if complete {
			h.CloseSink(nil)
			if h.DecrementRemaining() <= 0 {
				if _, ok := s.table.Remove(sid); ok {
					decStreamMetrics(h, s.table)
				}
			}
		}
	}
}

func (s *Session) handleRequestResponse(sid uint32, p payload.Payload) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.setResponderCancel(sid, cancel)
	s.spawnResponderTask(func() {
		defer s.clearResponderCancel(sid)
		defer cancel()
		reply, err := s.slot.Get().RequestResponse(ctx, p)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.sendError(sid, err)
			return
		}
		s.sendFragmentedPayload(sid, reply, payloadHeadBuilder, true, true)
	})
}

func (s *Session) handleRequestStream(sid uint32, p payload.Payload, initialRequestN uint32) {
	s.log.Debugf("recorded initial REQUEST_N=%d for stream %d (flow control not enforced)", initialRequestN, sid)
	ctx, cancel := context.WithCancel(s.ctx)
	s.setResponderCancel(sid, cancel)
	s.spawnResponderTask(func() {
		defer s.clearResponderCancel(sid)
		defer cancel()
		err := s.slot.Get().RequestStream(ctx, p, func(item payload.Payload) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.sendFragmentedPayload(sid, item, payloadHeadBuilder, true, false)
			return nil
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.sendError(sid, err)
			return
		}
		s.sendFrame(frame.New(sid, &frame.Payload{Complete: true}, 0))
	})
}

func (s *Session) handleRequestChannel(sid uint32, first payload.Payload, headComplete bool) {
	in := make(chan payload.Payload, 16)
	if headComplete {
		close(in)
	} else {
		s.inboundChannelRegister(sid, in)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.setResponderCancel(sid, cancel)
	s.spawnResponderTask(func() {
		defer s.clearResponderCancel(sid)
		defer cancel()
		defer s.inboundChannelRemove(sid)
		err := s.slot.Get().RequestChannel(ctx, first, in, func(item payload.Payload) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.sendFragmentedPayload(sid, item, payloadHeadBuilder, true, false)
			return nil
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.sendError(sid, err)
			return
		}
		s.sendFrame(frame.New(sid, &frame.Payload{Complete: true}, 0))
	})
}

func (s *Session) sendFragmentedPayload(sid uint32, p payload.Payload, build fragment.HeadBuilder, next, complete bool) {
	for _, fr := range s.splitter.Split(sid, build, p.Data, p.Metadata, next, complete) {
		s.sendFrame(fr)
	}
}
