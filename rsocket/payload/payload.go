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

// Package payload defines the data/metadata pair exchanged on every RSocket
// interaction, independent of the frame(s) that carried it over the wire.
package payload

import "time"

// Payload is a pair of optional blobs. A nil Data or Metadata means the
// value was absent; an empty-but-non-nil slice is semantically equivalent
// to absent for every core operation.
type Payload struct {
	Data     []byte
	Metadata []byte
}

func New(data, metadata []byte) Payload {
	return Payload{Data: data, Metadata: metadata}
}

func (p Payload) HasMetadata() bool {
	return len(p.Metadata) > 0
}

func (p Payload) HasData() bool {
	return len(p.Data) > 0
}

// Setup is a Payload plus the connection-level negotiation fields carried
// by the SETUP frame.
type Setup struct {
	Payload
	DataMimeType      string
	MetadataMimeType  string
	KeepaliveInterval time.Duration
	KeepaliveLifetime time.Duration
}
