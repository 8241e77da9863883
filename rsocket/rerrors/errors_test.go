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

package rerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rsocket-core/rsocket/rsocket/frame"
)

func TestNewCarriesCodeAndData(t *testing.T) {
	err := New(frame.ErrorRejected, "busy")
	assert.Equal(t, frame.ErrorRejected, err.Code)
	assert.Contains(t, err.Error(), "busy")
	assert.Contains(t, err.Error(), frame.ErrorRejected.String())
}

func TestFromFrameRoundTripsCodeAndData(t *testing.T) {
	f := &frame.Error{Code: frame.ErrorApplicationError, Data: "boom"}
	err := FromFrame(f)
	assert.Equal(t, frame.ErrorApplicationError, err.Code)
	assert.Equal(t, "boom", err.Data)
}

func TestApplicationWrapsAsApplicationError(t *testing.T) {
	err := Application(errors.New("handler panicked"))
	assert.Equal(t, frame.ErrorApplicationError, err.Code)
	assert.Equal(t, "handler panicked", err.Data)
}

func TestSentinelsHaveExpectedCodes(t *testing.T) {
	assert.Equal(t, frame.ErrorCanceled, Canceled.Code)
	assert.Equal(t, frame.ErrorConnectionClose, ConnectionClosed.Code)
}

func TestErrProtocolWrapsFormattedMessage(t *testing.T) {
	err := ErrProtocol("duplicate setup from stream %d", 7)
	assert.ErrorContains(t, err, "duplicate setup from stream 7")
	assert.ErrorContains(t, err, "rsocket protocol error")
}
