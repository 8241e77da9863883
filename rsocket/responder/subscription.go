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

import "github.com/rsocket-core/rsocket/rsocket/payload"

// Subscription is the requester-side handle for a RequestStream or
// RequestChannel call. Go has no destructor to hook a "the consumer
// stopped reading" event (the role DROP plays in languages with
// deterministic destruction), so Cancel is the explicit idiomatic
// substitute: callers that stop consuming before Payloads() closes
// should call Cancel to let the peer know.
type Subscription struct {
	ch     <-chan payload.Payload
	cancel func()
	errFn  func() error
}

// NewSubscription is used by the session package to construct the handle
// it returns to callers; cancel and errFn are closures over session
// state the responder package has no visibility into.
func NewSubscription(ch <-chan payload.Payload, cancel func(), errFn func() error) *Subscription {
	return &Subscription{ch: ch, cancel: cancel, errFn: errFn}
}

// Payloads yields NEXT payloads in arrival order, closed when the
// sequence completes, errors, or is canceled.
func (s *Subscription) Payloads() <-chan payload.Payload {
	return s.ch
}

// Err returns the terminal error, if any, once Payloads has closed. It
// is safe to call only after a receive from Payloads has returned ok ==
// false; the happens-before edge of the channel close makes that read
// race-free without extra locking.
func (s *Subscription) Err() error {
	if s.errFn == nil {
		return nil
	}
	return s.errFn()
}

// Cancel requests early termination, emitting CANCEL upstream. Safe to
// call multiple times and safe to call after natural completion.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
