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

// Package demo implements a JSON echo Responder used by the CLI's serve
// and dial subcommands to smoke-test all four interaction patterns
// against a live session without any external dependency.
package demo

import (
	"context"
	"fmt"

	jsoniter "github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"

	"github.com/rsocket-core/rsocket/common"
	"github.com/rsocket-core/rsocket/logger"
	"github.com/rsocket-core/rsocket/rsocket/payload"
	"github.com/rsocket-core/rsocket/rsocket/responder"
)

// Options configures one connection's EchoResponder, typically decoded
// from the free-form metadata section of the SETUP frame that accepted
// it.
type Options struct {
	// Prefix is prepended to every echoed message, letting a dial demo
	// distinguish replies from multiple concurrently-served connections.
	Prefix string `mapstructure:"prefix"`
}

// OptionsFromSetupMetadata decodes setup metadata shaped as a JSON object
// into Options, plus the raw option bag it was decoded from for fields
// that aren't worth a dedicated struct tag. A SETUP with no metadata, or
// metadata that isn't a JSON object, yields zero values rather than an
// error (it's informational, not load-bearing).
func OptionsFromSetupMetadata(metadata []byte) (Options, common.Options) {
	var opts Options
	if len(metadata) == 0 {
		return opts, common.NewOptions()
	}

	var raw map[string]any
	if err := jsoniter.Unmarshal(metadata, &raw); err != nil {
		return opts, common.NewOptions()
	}
	if err := mapstructure.Decode(raw, &opts); err != nil {
		logger.Debugf("demo: failed to decode SETUP metadata: %v", err)
	}
	return opts, common.Options(raw)
}

// Message is the JSON envelope every echo interaction speaks.
type Message struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

// streamRequest is the decoded body of a RequestStream call: "echo Text
// back Count times."
type streamRequest struct {
	Count int    `json:"count"`
	Text  string `json:"text"`
}

// Acceptor builds one EchoResponder per accepted connection.
func Acceptor() responder.Acceptor {
	return responder.GenerateAcceptor(func(ctx context.Context, setup payload.Setup, self responder.Requester) (responder.Responder, error) {
		opts, raw := OptionsFromSetupMetadata(setup.Metadata)
		return NewEchoResponder(opts, raw), nil
	})
}

// EchoResponder answers every interaction pattern by echoing its input
// back as JSON, prefixed per Options.
type EchoResponder struct {
	opts      Options
	maxRepeat int
}

// defaultMaxRepeat bounds RequestStream's count when the SETUP metadata
// doesn't name a smaller maxRepeat, so one misbehaving client can't ask
// for an unbounded reply stream.
const defaultMaxRepeat = 1000

func NewEchoResponder(opts Options, raw common.Options) *EchoResponder {
	// mapstructure only binds "prefix" when it decodes straight to a
	// string; cast's looser coercion catches a numeric or boolean prefix
	// that mapstructure.Decode left at the zero value.
	if opts.Prefix == "" {
		if prefix, err := raw.GetString("prefix"); err == nil && prefix != "" {
			opts.Prefix = prefix
		}
	}

	maxRepeat := defaultMaxRepeat
	if n, err := raw.GetInt("maxRepeat"); err == nil && n > 0 {
		maxRepeat = n
	}
	return &EchoResponder{opts: opts, maxRepeat: maxRepeat}
}

func (e *EchoResponder) decorate(text string) string {
	if e.opts.Prefix == "" {
		return text
	}
	return e.opts.Prefix + ": " + text
}

func (e *EchoResponder) FireAndForget(ctx context.Context, p payload.Payload) {
	logger.Infof("demo: fire-and-forget: %s", p.Data)
}

func (e *EchoResponder) MetadataPush(ctx context.Context, metadata []byte) {
	logger.Infof("demo: metadata push: %s", metadata)
}

func (e *EchoResponder) RequestResponse(ctx context.Context, p payload.Payload) (payload.Payload, error) {
	var msg Message
	if err := jsoniter.Unmarshal(p.Data, &msg); err != nil {
		return payload.Payload{}, fmt.Errorf("decode request: %w", err)
	}
	msg.Text = e.decorate(msg.Text)

	out, err := jsoniter.Marshal(msg)
	if err != nil {
		return payload.Payload{}, err
	}
	return payload.New(out, nil), nil
}

func (e *EchoResponder) RequestStream(ctx context.Context, p payload.Payload, sink func(payload.Payload) error) error {
	var req streamRequest
	if err := jsoniter.Unmarshal(p.Data, &req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > e.maxRepeat {
		req.Count = e.maxRepeat
	}

	for i := 0; i < req.Count; i++ {
		out, err := jsoniter.Marshal(Message{Seq: i, Text: e.decorate(req.Text)})
		if err != nil {
			return err
		}
		if err := sink(payload.New(out, nil)); err != nil {
			return err
		}
	}
	return nil
}

func (e *EchoResponder) RequestChannel(ctx context.Context, first payload.Payload, in <-chan payload.Payload, sink func(payload.Payload) error) error {
	echoOne := func(p payload.Payload) error {
		var msg Message
		if err := jsoniter.Unmarshal(p.Data, &msg); err != nil {
			return fmt.Errorf("decode channel item: %w", err)
		}
		msg.Text = e.decorate(msg.Text)
		out, err := jsoniter.Marshal(msg)
		if err != nil {
			return err
		}
		return sink(payload.New(out, nil))
	}

	if err := echoOne(first); err != nil {
		return err
	}
	for p := range in {
		if err := echoOne(p); err != nil {
			return err
		}
	}
	return nil
}
