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

// Package tracekit mints and parses W3C traceparent-shaped identifiers
// used to correlate log lines across one session's lifetime and across
// the individual streams multiplexed onto it.
package tracekit

import (
	"crypto/rand"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const headerTraceParent = "traceparent"

// TraceContext ties a session-lifetime TraceID to the SpanID of whichever
// operation is currently being logged.
type TraceContext struct {
	TraceID trace.TraceID
	SpanID  trace.SpanID
}

// NewTraceContext mints a fresh TraceID and root SpanID, for tagging a
// newly accepted session.
func NewTraceContext() TraceContext {
	return TraceContext{TraceID: randomTraceID(), SpanID: randomSpanID()}
}

// NewChildSpan keeps the session's TraceID but mints a new SpanID, for
// tagging one stream's worth of request/response or stream/channel
// activity within that session.
func (tc TraceContext) NewChildSpan() TraceContext {
	return TraceContext{TraceID: tc.TraceID, SpanID: randomSpanID()}
}

func (tc TraceContext) String() string {
	return tc.TraceID.String() + ":" + tc.SpanID.String()
}

// TraceContextFromHTTPHeader extracts a TraceContext from a W3C
// traceparent header, e.g. one carried by the admin HTTP server's inbound
// requests.
//
// format: traceparent: 00-{trace-id}-{parent-id}-{trace-flags}
func TraceContextFromHTTPHeader(h http.Header) (TraceContext, bool) {
	var empty TraceContext
	s := h.Get(headerTraceParent)
	if s == "" {
		return empty, false
	}

	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return empty, false
	}
	if parts[0] != "00" {
		return empty, false
	}

	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return empty, false
	}
	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return empty, false
	}
	return TraceContext{TraceID: traceID, SpanID: spanID}, true
}

func randomTraceID() trace.TraceID {
	var b [16]byte
	rand.Read(b[:])
	return b
}

func randomSpanID() trace.SpanID {
	var b [8]byte
	rand.Read(b[:])
	return b
}
