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

	"golang.org/x/net/netutil"
)

// Listener accepts TCP connections and hands back frame-pumping Conns,
// capping concurrently accepted connections so a burst of dials can't
// exhaust file descriptors.
type Listener struct {
	ln net.Listener
}

// Listen binds addr and wraps the resulting net.Listener. maxConns <= 0
// means unbounded.
func Listen(addr string, maxConns int) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return &Listener{ln: ln}, nil
}

// Accept blocks for the next inbound connection and wraps it.
func (l *Listener) Accept() (*Conn, net.Addr, error) {
	nc, err := l.ln.Accept()
	if err != nil {
		return nil, nil, err
	}
	return NewConn(nc), nc.RemoteAddr(), nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }

// Dial connects to addr and wraps the resulting net.Conn.
func Dial(addr string) (*Conn, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(nc), nil
}
