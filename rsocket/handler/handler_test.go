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

package handler

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsocket-core/rsocket/rsocket/payload"
)

func TestRequestResolveOnce(t *testing.T) {
	h := NewRequest()
	h.Resolve(payload.New([]byte("a"), nil), nil)
	h.Resolve(payload.New([]byte("b"), nil), errors.New("ignored"))

	res := <-h.Reply
	assert.Equal(t, []byte("a"), res.Payload.Data)
	assert.NoError(t, res.Err)
}

func TestRequestResolveConcurrentIsSafe(t *testing.T) {
	h := NewRequest()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Resolve(payload.Payload{}, nil)
		}()
	}
	wg.Wait()
	_, ok := <-h.Reply
	assert.True(t, ok, "exactly one send should have succeeded before close")
	_, ok = <-h.Reply
	assert.False(t, ok, "channel should be closed after the single resolve")
}

func TestChannelHalfCloseCounter(t *testing.T) {
	h := NewChannel()
	require.Equal(t, int32(1), h.DecrementRemaining())
	require.Equal(t, int32(0), h.DecrementRemaining())
}

func TestCloseSinkOnceCarriesFirstError(t *testing.T) {
	h := NewStream()
	h.CloseSink(errors.New("first"))
	h.CloseSink(errors.New("second"))

	_, ok := <-h.Sink
	assert.False(t, ok)
	require.NotNil(t, h.SinkErr)
	assert.Equal(t, "first", (*h.SinkErr).Error())
}

func TestPushThenCloseDrains(t *testing.T) {
	h := NewStream()
	h.Push(payload.New([]byte("1"), nil))
	h.Push(payload.New([]byte("2"), nil))
	h.CloseSink(nil)

	var got []string
	for p := range h.Sink {
		got = append(got, string(p.Data))
	}
	assert.Equal(t, []string{"1", "2"}, got)
	assert.Nil(t, h.SinkErr)
}
