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

package demo

import (
	"context"
	"testing"

	jsoniter "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsocket-core/rsocket/common"
	"github.com/rsocket-core/rsocket/rsocket/payload"
)

func TestOptionsFromSetupMetadataEmpty(t *testing.T) {
	opts, raw := OptionsFromSetupMetadata(nil)
	assert.Equal(t, Options{}, opts)
	assert.Empty(t, raw)
}

func TestOptionsFromSetupMetadataDecodesPrefix(t *testing.T) {
	opts, raw := OptionsFromSetupMetadata([]byte(`{"prefix":"demo"}`))
	assert.Equal(t, "demo", opts.Prefix)
	v, err := raw.GetString("prefix")
	require.NoError(t, err)
	assert.Equal(t, "demo", v)
}

func TestOptionsFromSetupMetadataIgnoresNonObject(t *testing.T) {
	opts, raw := OptionsFromSetupMetadata([]byte(`"not an object"`))
	assert.Equal(t, Options{}, opts)
	assert.Empty(t, raw)
}

func TestNewEchoResponderDefaultMaxRepeat(t *testing.T) {
	e := NewEchoResponder(Options{}, common.NewOptions())
	assert.Equal(t, defaultMaxRepeat, e.maxRepeat)
}

func TestNewEchoResponderHonorsMaxRepeatOption(t *testing.T) {
	opts, raw := OptionsFromSetupMetadata([]byte(`{"maxRepeat":5}`))
	e := NewEchoResponder(opts, raw)
	assert.Equal(t, 5, e.maxRepeat)
}

func TestNewEchoResponderCoercesNonStringPrefix(t *testing.T) {
	opts, raw := OptionsFromSetupMetadata([]byte(`{"prefix":42}`))
	require.Empty(t, opts.Prefix, "mapstructure leaves a type-mismatched field at zero value")
	e := NewEchoResponder(opts, raw)
	assert.Equal(t, "42", e.opts.Prefix)
}

func TestRequestResponseEchoesWithPrefix(t *testing.T) {
	opts, raw := OptionsFromSetupMetadata([]byte(`{"prefix":"srv"}`))
	e := NewEchoResponder(opts, raw)

	reqBody, _ := jsoniter.Marshal(Message{Text: "hi"})
	reply, err := e.RequestResponse(context.Background(), payload.New(reqBody, nil))
	require.NoError(t, err)

	var got Message
	require.NoError(t, jsoniter.Unmarshal(reply.Data, &got))
	assert.Equal(t, "srv: hi", got.Text)
}

func TestRequestStreamCapsCountAtMaxRepeat(t *testing.T) {
	opts, raw := OptionsFromSetupMetadata([]byte(`{"maxRepeat":2}`))
	e := NewEchoResponder(opts, raw)

	reqBody, _ := jsoniter.Marshal(streamRequest{Count: 10, Text: "tick"})
	var got []Message
	err := e.RequestStream(context.Background(), payload.New(reqBody, nil), func(p payload.Payload) error {
		var msg Message
		if err := jsoniter.Unmarshal(p.Data, &msg); err != nil {
			return err
		}
		got = append(got, msg)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRequestChannelEchoesFirstAndInbound(t *testing.T) {
	e := NewEchoResponder(Options{}, common.NewOptions())

	first, _ := jsoniter.Marshal(Message{Text: "first"})
	in := make(chan payload.Payload, 1)
	second, _ := jsoniter.Marshal(Message{Text: "second"})
	in <- payload.New(second, nil)
	close(in)

	var got []string
	err := e.RequestChannel(context.Background(), payload.New(first, nil), in, func(p payload.Payload) error {
		var msg Message
		if err := jsoniter.Unmarshal(p.Data, &msg); err != nil {
			return err
		}
		got = append(got, msg.Text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got)
}
