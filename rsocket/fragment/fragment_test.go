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

package fragment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsocket-core/rsocket/rsocket/frame"
)

func requestResponseBuilder(data, metadata []byte, hasMeta bool) frame.Body {
	return &frame.RequestResponse{Data: data, Metadata: metadata, HasMetadata: hasMeta}
}

func TestSplitterFitsWithinMTU(t *testing.T) {
	s := Splitter{MTU: 1024}
	frames := s.Split(1, requestResponseBuilder, []byte("small"), nil, false, false)
	require.Len(t, frames, 1)
	assert.False(t, frames[0].Flags().Has(frame.FlagFollow))
}

func TestSplitterAndJoinerRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("x", 500))
	metadata := []byte(strings.Repeat("m", 50))

	s := Splitter{MTU: 64}
	frames := s.Split(3, requestResponseBuilder, data, metadata, false, false)
	require.Greater(t, len(frames), 1, "expected the oversized payload to fragment")

	for i, f := range frames[:len(frames)-1] {
		assert.True(t, f.Flags().Has(frame.FlagFollow), "fragment %d should carry FOLLOW", i)
	}
	assert.False(t, frames[len(frames)-1].Flags().Has(frame.FlagFollow))

	j := NewJoiner(frames[0])
	for _, f := range frames[1:] {
		finished := j.Push(f)
		if f == frames[len(frames)-1] {
			assert.True(t, finished)
		}
	}

	joined := j.Payload()
	assert.Equal(t, data, joined.Data)
	assert.Equal(t, metadata, joined.Metadata)
	assert.Equal(t, frame.TypeRequestResponse, j.FrameType())
}

func TestSplitterAppliesTerminalFlagsOnlyToLastFragment(t *testing.T) {
	data := []byte(strings.Repeat("y", 200))

	s := Splitter{MTU: 32}
	payloadBuilder := func(data, metadata []byte, hasMeta bool) frame.Body {
		return &frame.Payload{Data: data, Metadata: metadata, HasMetadata: hasMeta}
	}
	frames := s.Split(5, payloadBuilder, data, nil, true, true)
	require.Greater(t, len(frames), 1)

	for _, f := range frames[:len(frames)-1] {
		body := f.Body.(*frame.Payload)
		assert.False(t, body.Next)
		assert.False(t, body.Complete)
	}
	last := frames[len(frames)-1].Body.(*frame.Payload)
	assert.True(t, last.Next)
	assert.True(t, last.Complete)
}

func TestPayloadOfUnfragmented(t *testing.T) {
	body := &frame.RequestFNF{Data: []byte("d"), Metadata: []byte("m")}
	p := PayloadOf(body)
	assert.Equal(t, []byte("d"), p.Data)
	assert.Equal(t, []byte("m"), p.Metadata)
}
