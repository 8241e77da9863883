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

// Package rerrors defines the error taxonomy a duplex session surfaces to
// its callers: per-stream application failures, cancellation, and
// connection-level termination.
package rerrors

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rsocket-core/rsocket/rsocket/frame"
)

// Error is delivered to a requester's waiter when the peer answers with an
// ERROR frame, or is synthesized locally for cancellation/connection
// failure. It wraps an RSocket error code and the code's accompanying data
// string.
type Error struct {
	Code frame.ErrorCode
	Data string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rsocket: %s: %s", e.Code, e.Data)
}

func New(code frame.ErrorCode, data string) *Error {
	return &Error{Code: code, Data: data}
}

func FromFrame(f *frame.Error) *Error {
	return &Error{Code: f.Code, Data: f.Data}
}

// Application wraps an arbitrary handler-side failure as an
// APPLICATION_ERROR. A responder panic is not converted: the session's
// rescue.HandleCrash only logs and counts it, and no ERROR frame is sent
// for that stream.
func Application(err error) *Error {
	return &Error{Code: frame.ErrorApplicationError, Data: err.Error()}
}

// Canceled is delivered to a Request waiter when its stream is canceled,
// either by an inbound CANCEL frame or by session teardown racing a
// pending request.
var Canceled = &Error{Code: frame.ErrorCanceled, Data: "canceled"}

// ConnectionClosed is delivered to every outstanding waiter when the
// session terminates, so nothing is left leaked.
var ConnectionClosed = &Error{Code: frame.ErrorConnectionClose, Data: "connection closed"}

// ErrNoHandler is returned by request_response when its one-shot waiter's
// Reply channel is closed without a result. Session teardown does not use
// it; outstanding waiters then get ConnectionClosed.
var ErrNoHandler = errors.New("rsocket: request_response failed: no response delivered")

// ErrUnknownStream is logged (not surfaced to a waiter) when a frame
// arrives for a stream id the handler table has no entry for; per the
// error-isolation rule this never aborts the session.
var ErrUnknownStream = errors.New("rsocket: frame for unknown stream id")

// ErrProtocol marks a malformed frame or an out-of-state frame sequence
// (e.g. duplicate SETUP); the session responds by closing the connection
// with CONNECTION_ERROR.
func ErrProtocol(format string, args ...any) error {
	return errors.Wrap(errors.Errorf(format, args...), "rsocket protocol error")
}
