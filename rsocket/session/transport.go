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

// Package session implements the duplex session engine: the inbound
// frame demultiplexer, the client-facing request issuer, and the glue
// between them (the handler table and fragmentation layers).
package session

import "github.com/rsocket-core/rsocket/rsocket/frame"

// Inbound is the frame source a Session consumes; closing it terminates
// the session's Serve loop.
type Inbound = <-chan frame.Frame

// Outbound is the frame sink a Session produces into. A single funnel
// goroutine (owned by the transport adapter, not the Session) should
// drain it to preserve per-connection write ordering.
type Outbound = chan<- frame.Frame

// Logger is the minimal structured-logging surface the session needs;
// satisfied directly by this project's logger package without an import
// cycle, and trivially satisfied by a no-op for tests.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
