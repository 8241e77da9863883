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

package engine

import "time"

// SessionEvent is published to the watch bus whenever a connection is
// accepted or torn down, for the /watch admin endpoint.
type SessionEvent struct {
	Type       string `json:"type"`
	TraceID    string `json:"trace_id"`
	RemoteAddr string `json:"remote_addr"`
	Time       int64  `json:"time"`
	Err        string `json:"err,omitempty"`
}

const (
	eventSessionOpened = "session_opened"
	eventSessionClosed = "session_closed"
)

func newSessionEvent(kind, traceID, remoteAddr string, err error) SessionEvent {
	ev := SessionEvent{
		Type:       kind,
		TraceID:    traceID,
		RemoteAddr: remoteAddr,
		Time:       time.Now().Unix(),
	}
	if err != nil {
		ev.Err = err.Error()
	}
	return ev
}
