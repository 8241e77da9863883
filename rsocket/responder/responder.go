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

// Package responder defines the server-side handler set a duplex session
// dispatches inbound interactions to, and the slot that holds it.
package responder

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rsocket-core/rsocket/rsocket/payload"
)

// Responder answers inbound requests. A real implementation is supplied
// by the application via an Acceptor at SETUP time; until then (and for
// any request the application chooses not to implement) Empty (see
// empty.go) is the default.
type Responder interface {
	FireAndForget(ctx context.Context, p payload.Payload)
	MetadataPush(ctx context.Context, metadata []byte)
	RequestResponse(ctx context.Context, p payload.Payload) (payload.Payload, error)
	RequestStream(ctx context.Context, p payload.Payload, sink func(payload.Payload) error) error
	RequestChannel(ctx context.Context, first payload.Payload, in <-chan payload.Payload, sink func(payload.Payload) error) error
}

// Slot holds the one server-side Responder installed for a session.
// Before SETUP it is Empty; SETUP installs the real one exactly
// once, after which reads and writes race-free under a read-write lock
// (written once, read on every inbound request).
type Slot struct {
	mut       sync.RWMutex
	current   Responder
	installed atomic.Bool
}

func NewSlot() *Slot {
	return &Slot{current: Empty{}}
}

// Set installs r as the active responder. A second call is a no-op: the
// responder is mutably replaced exactly once, at the first SETUP frame.
func (s *Slot) Set(r Responder) {
	if !s.installed.CompareAndSwap(false, true) {
		return
	}
	s.mut.Lock()
	s.current = r
	s.mut.Unlock()
}

func (s *Slot) Get() Responder {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return s.current
}
