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

	"github.com/rsocket-core/rsocket/rsocket/frame"
	"github.com/rsocket-core/rsocket/rsocket/payload"
	"github.com/rsocket-core/rsocket/rsocket/rerrors"
)

// Empty is installed before SETUP and answers every request-shaped
// interaction with a rejection; fire-and-forget and metadata push are
// silently no-op'd, and request/channel yields an immediately-complete
// empty stream rather than an error.
type Empty struct{}

var errNoResponder = rerrors.New(frame.ErrorApplicationError, "no responder installed")

func (Empty) FireAndForget(context.Context, payload.Payload) {}

func (Empty) MetadataPush(context.Context, []byte) {}

func (Empty) RequestResponse(context.Context, payload.Payload) (payload.Payload, error) {
	return payload.Payload{}, errNoResponder
}

func (Empty) RequestStream(_ context.Context, _ payload.Payload, _ func(payload.Payload) error) error {
	return errNoResponder
}

func (Empty) RequestChannel(_ context.Context, _ payload.Payload, _ <-chan payload.Payload, _ func(payload.Payload) error) error {
	return nil
}
