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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rsocket-core/rsocket/rsocket/frame"
	"github.com/rsocket-core/rsocket/rsocket/payload"
	"github.com/rsocket-core/rsocket/rsocket/responder"
	"github.com/rsocket-core/rsocket/rsocket/streamid"
)

// echoResponder answers every interaction by uppercasing the request data,
// exercising all four interaction patterns against a real pair of wired
// Sessions rather than mocks.
type echoResponder struct{}

func (echoResponder) FireAndForget(ctx context.Context, p payload.Payload) {}
func (echoResponder) MetadataPush(ctx context.Context, metadata []byte)   {}

func (echoResponder) RequestResponse(ctx context.Context, p payload.Payload) (payload.Payload, error) {
	return payload.New([]byte(strings.ToUpper(string(p.Data))), nil), nil
}

func (echoResponder) RequestStream(ctx context.Context, p payload.Payload, sink func(payload.Payload) error) error {
	for i := 0; i < 3; i++ {
		if err := sink(payload.New([]byte(fmt.Sprintf("%s-%d", p.Data, i)), nil)); err != nil {
			return err
		}
	}
	return nil
}

func (echoResponder) RequestChannel(ctx context.Context, first payload.Payload, in <-chan payload.Payload, sink func(payload.Payload) error) error {
	if err := sink(first); err != nil {
		return err
	}
	for p := range in {
		if err := sink(p); err != nil {
			return err
		}
	}
	return nil
}

// wirePair connects two Sessions back to back over buffered channels, the
// same frame.Frame pipe a transport.Conn would provide, and starts both
// Serve loops.
func wirePair(t *testing.T, mtu int) (client, server *Session, stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	c2s := make(chan frame.Frame, 256)
	s2c := make(chan frame.Frame, 256)

	client = New(ctx, Config{Allocator: streamid.Client(), MTU: mtu}, c2s)
	server = New(ctx, Config{
		Allocator: streamid.Server(),
		Acceptor:  responder.SimpleAcceptor(func() responder.Responder { return echoResponder{} }),
		MTU:       mtu,
	}, s2c)

	go client.Serve(s2c)
	go server.Serve(c2s)

	stop = func() {
		cancel()
		client.Close()
		server.Close()
	}
	return client, server, stop
}

func TestSessionRequestResponse(t *testing.T) {
	client, _, stop := wirePair(t, 16*1024)
	defer stop()

	client.SendSetup(payload.Setup{DataMimeType: "text/plain"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := client.RequestResponse(ctx, payload.New([]byte("hello"), nil))
	require.NoError(t, err)
	require.Equal(t, "HELLO", string(reply.Data))
}

func TestSessionRequestStream(t *testing.T) {
	client, _, stop := wirePair(t, 16*1024)
	defer stop()

	client.SendSetup(payload.Setup{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := client.RequestStream(ctx, payload.New([]byte("tick"), nil))
	require.NoError(t, err)

	var got []string
	for p := range sub.Payloads() {
		got = append(got, string(p.Data))
	}
	require.NoError(t, sub.Err())
	require.Equal(t, []string{"tick-0", "tick-1", "tick-2"}, got)
}

func TestSessionRequestChannel(t *testing.T) {
	client, _, stop := wirePair(t, 16*1024)
	defer stop()

	client.SendSetup(payload.Setup{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	in := make(chan payload.Payload)
	sub, err := client.RequestChannel(ctx, payload.New([]byte("first"), nil), in)
	require.NoError(t, err)

	go func() {
		in <- payload.New([]byte("second"), nil)
		close(in)
	}()

	var got []string
	for p := range sub.Payloads() {
		got = append(got, string(p.Data))
	}
	require.NoError(t, sub.Err())
	require.Equal(t, []string{"first", "second"}, got)
}

func TestSessionFragmentsLargeRequestResponse(t *testing.T) {
	// A tiny MTU forces the request and its reply through a multi-frame
	// FOLLOW chain on both directions.
	client, _, stop := wirePair(t, 32)
	defer stop()

	client.SendSetup(payload.Setup{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	big := strings.Repeat("ab", 200)
	reply, err := client.RequestResponse(ctx, payload.New([]byte(big), nil))
	require.NoError(t, err)
	require.Equal(t, strings.ToUpper(big), string(reply.Data))
}

func TestSessionFireAndForgetDoesNotBlock(t *testing.T) {
	client, _, stop := wirePair(t, 16*1024)
	defer stop()

	client.SendSetup(payload.Setup{})

	err := client.FireAndForget(context.Background(), payload.New([]byte("x"), nil))
	require.NoError(t, err)
}
