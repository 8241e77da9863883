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

package frame

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeDecode(t *testing.T, f Frame) Frame {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, f))
	got, err := Decode(&buf)
	require.NoError(t, err)
	return got
}

func TestCodecRoundTripSetup(t *testing.T) {
	f := New(0, &Setup{
		Flags:             FlagMetadata,
		MajorVersion:      1,
		MinorVersion:      0,
		KeepaliveInterval: 20 * time.Second,
		MaxLifetime:       90 * time.Second,
		MetadataMimeType:  "application/json",
		DataMimeType:      "application/json",
		Metadata:          []byte("meta"),
		Data:              []byte("hello"),
	}, 0)

	got := encodeDecode(t, f)
	require.Equal(t, TypeSetup, got.Type())
	body := got.Body.(*Setup)
	assert.Equal(t, uint16(1), body.MajorVersion)
	assert.Equal(t, 20*time.Second, body.KeepaliveInterval)
	assert.Equal(t, 90*time.Second, body.MaxLifetime)
	assert.Equal(t, "application/json", body.MetadataMimeType)
	assert.Equal(t, "application/json", body.DataMimeType)
	assert.Equal(t, []byte("meta"), body.Metadata)
	assert.Equal(t, []byte("hello"), body.Data)
}

func TestCodecRoundTripRequestResponse(t *testing.T) {
	f := New(7, &RequestResponse{HasMetadata: true, Metadata: []byte("m"), Data: []byte("d")}, 0)

	got := encodeDecode(t, f)
	assert.Equal(t, uint32(7), got.StreamID())
	assert.Equal(t, TypeRequestResponse, got.Type())
	body := got.Body.(*RequestResponse)
	assert.Equal(t, []byte("m"), body.Metadata)
	assert.Equal(t, []byte("d"), body.Data)
}

func TestCodecRoundTripRequestResponseNoMetadata(t *testing.T) {
	f := New(9, &RequestResponse{HasMetadata: false, Data: []byte("d")}, 0)

	got := encodeDecode(t, f)
	body := got.Body.(*RequestResponse)
	assert.Nil(t, body.Metadata)
	assert.Equal(t, []byte("d"), body.Data)
}

func TestCodecRoundTripPayloadFlags(t *testing.T) {
	f := New(11, &Payload{Next: true, Complete: true, Data: []byte("x")}, 0)

	got := encodeDecode(t, f)
	body := got.Body.(*Payload)
	assert.True(t, body.Next)
	assert.True(t, body.Complete)
	assert.True(t, got.Flags().Has(FlagNext))
	assert.True(t, got.Flags().Has(FlagComplete))
}

func TestCodecRoundTripRequestStream(t *testing.T) {
	f := New(13, &RequestStream{InitialRequestN: 42, HasMetadata: false, Data: []byte("s")}, 0)

	got := encodeDecode(t, f)
	body := got.Body.(*RequestStream)
	assert.Equal(t, uint32(42), body.InitialRequestN)
	assert.Equal(t, []byte("s"), body.Data)
}

func TestCodecRoundTripRequestChannelComplete(t *testing.T) {
	f := New(15, &RequestChannel{InitialRequestN: 1, Complete: true, Data: []byte("c")}, 0)

	got := encodeDecode(t, f)
	assert.True(t, got.Flags().Has(FlagComplete))
	body := got.Body.(*RequestChannel)
	assert.True(t, body.Complete)
}

func TestCodecRoundTripCancel(t *testing.T) {
	f := New(17, &Cancel{}, 0)
	got := encodeDecode(t, f)
	assert.Equal(t, TypeCancel, got.Type())
}

func TestCodecRoundTripError(t *testing.T) {
	f := New(19, &Error{Code: ErrorApplicationError, Data: "boom"}, 0)
	got := encodeDecode(t, f)
	body := got.Body.(*Error)
	assert.Equal(t, ErrorApplicationError, body.Code)
	assert.Equal(t, "boom", body.Data)
}

func TestCodecRoundTripKeepaliveRespond(t *testing.T) {
	f := New(0, &Keepalive{Respond: true, LastPosition: 100, Data: []byte("k")}, 0)
	got := encodeDecode(t, f)
	body := got.Body.(*Keepalive)
	assert.True(t, body.Respond)
	assert.Equal(t, uint64(100), body.LastPosition)
	assert.Equal(t, []byte("k"), body.Data)
}

func TestCodecRoundTripMetadataPush(t *testing.T) {
	f := New(0, &MetadataPush{Metadata: []byte("mp")}, 0)
	got := encodeDecode(t, f)
	body := got.Body.(*MetadataPush)
	assert.Equal(t, []byte("mp"), body.Metadata)
}

func TestDecodeShortHeaderErrors(t *testing.T) {
	_, err := decodeHeaderAndBody([]byte{0x00, 0x01})
	assert.ErrorIs(t, err, errShortHeader)
}

func TestDecodeUnknownTypeErrors(t *testing.T) {
	var hb [headerSize]byte
	// type field occupies the top 6 bits of the 2-byte type/flags word.
	hb[4] = byte(TypeExt) << 2
	_, err := decodeHeaderAndBody(hb[:])
	assert.ErrorIs(t, err, errUnknownType)
}
