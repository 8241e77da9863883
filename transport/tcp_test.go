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

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsocket-core/rsocket/rsocket/frame"
)

func TestConnRoundTripsFrames(t *testing.T) {
	client, server := net.Pipe()
	cConn := NewConn(client)
	sConn := NewConn(server)
	defer cConn.Close()
	defer sConn.Close()

	f := frame.New(1, &frame.RequestResponse{Data: []byte("ping")}, 0)
	cConn.Outbound() <- f

	select {
	case got := <-sConn.Inbound():
		assert.Equal(t, uint32(1), got.StreamID())
		body := got.Body.(*frame.RequestResponse)
		assert.Equal(t, []byte("ping"), body.Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestConnCloseUnblocksBothPumps(t *testing.T) {
	client, server := net.Pipe()
	cConn := NewConn(client)
	sConn := NewConn(server)
	defer sConn.Close()

	require.NoError(t, cConn.Close())

	select {
	case _, ok := <-sConn.Inbound():
		assert.False(t, ok, "peer close should close the inbound channel")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound channel to close")
	}
}

func TestListenAndDialRoundTrip(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", 0)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan *Conn, 1)
	go func() {
		conn, _, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	var server *Conn
	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for accept")
	}
	defer server.Close()

	client.Outbound() <- frame.New(0, &frame.Keepalive{Respond: true}, 0)
	select {
	case got := <-server.Inbound():
		assert.Equal(t, frame.TypeKeepalive, got.Type())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for keepalive frame")
	}
}
