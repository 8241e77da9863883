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

package responder

import (
	"context"

	"github.com/rsocket-core/rsocket/rsocket/payload"
)

// Requester is the slice of a duplex session's client-facing API that a
// Generate-style Acceptor may hand to a responder, so it can issue
// requests back to the peer that just connected to it. Defined here
// (rather than imported from the session package) so that package can
// depend on this one without a cycle; session.Session satisfies this
// interface structurally.
type Requester interface {
	FireAndForget(ctx context.Context, p payload.Payload) error
	MetadataPush(ctx context.Context, p payload.Payload) error
	RequestResponse(ctx context.Context, p payload.Payload) (payload.Payload, error)
	RequestStream(ctx context.Context, p payload.Payload) (*Subscription, error)
	RequestChannel(ctx context.Context, first payload.Payload, in <-chan payload.Payload) (*Subscription, error)
}

// Acceptor is the policy for choosing a Responder upon receipt of the
// first SETUP frame. It is invoked exactly once per session.
type Acceptor interface {
	Accept(ctx context.Context, setup payload.Setup, self Requester) (Responder, error)
}

type acceptorFunc func(ctx context.Context, setup payload.Setup, self Requester) (Responder, error)

func (f acceptorFunc) Accept(ctx context.Context, setup payload.Setup, self Requester) (Responder, error) {
	return f(ctx, setup, self)
}

// EmptyAcceptor installs Empty{} unconditionally, regardless of SETUP
// contents. Used by sessions that only ever act as a requester.
func EmptyAcceptor() Acceptor {
	return acceptorFunc(func(context.Context, payload.Setup, Requester) (Responder, error) {
		return Empty{}, nil
	})
}

// SimpleAcceptor builds a Responder from a factory that ignores SETUP
// contents and has no need to call back into the session.
func SimpleAcceptor(factory func() Responder) Acceptor {
	return acceptorFunc(func(context.Context, payload.Setup, Requester) (Responder, error) {
		return factory(), nil
	})
}

// GenerateAcceptor builds a Responder from a factory that receives the
// negotiated SetupPayload and a handle back to the duplex session,
// enabling the responder to issue requests to its peer (e.g. a
// server-initiated push stream).
func GenerateAcceptor(factory func(ctx context.Context, setup payload.Setup, self Requester) (Responder, error)) Acceptor {
	return acceptorFunc(factory)
}
