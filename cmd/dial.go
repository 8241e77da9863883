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

package cmd

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/goccy/go-json"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/rsocket-core/rsocket/demo"
	"github.com/rsocket-core/rsocket/logger"
	"github.com/rsocket-core/rsocket/rsocket/payload"
	"github.com/rsocket-core/rsocket/rsocket/session"
	"github.com/rsocket-core/rsocket/transport"
)

var (
	dialAddr    string
	dialTimeout string
)

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Connect to a server and exercise every interaction pattern once",
	Run: func(cmd *cobra.Command, args []string) {
		// cast coerces the flag from string to time.Duration.
		timeout, err := cast.ToDurationE(dialTimeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --timeout: %v\n", err)
			os.Exit(1)
		}

		conn, err := transport.Dial(dialAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to dial %s: %v\n", dialAddr, err)
			os.Exit(1)
		}
		defer conn.Close()

		sess := session.New(context.Background(), session.Config{Logger: logger.Current()}, conn.Outbound())
		go func() {
			if err := sess.Serve(conn.Inbound()); err != nil {
				logger.Warnf("dial session ended: %v", err)
			}
		}()
		defer sess.Close()

		sess.SendSetup(payload.Setup{
			DataMimeType:     "application/json",
			MetadataMimeType: "application/json",
		})

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		mustJSON := func(msg demo.Message) []byte {
			b, _ := jsoniter.Marshal(msg)
			return b
		}

		if err := sess.FireAndForget(ctx, payload.New(mustJSON(demo.Message{Text: "hello"}), nil)); err != nil {
			logger.Errorf("fire-and-forget: %v", err)
		} else {
			fmt.Println("fire-and-forget: sent")
		}

		reply, err := sess.RequestResponse(ctx, payload.New(mustJSON(demo.Message{Text: "ping"}), nil))
		if err != nil {
			logger.Errorf("request-response: %v", err)
		} else {
			fmt.Printf("request-response: %s\n", reply.Data)
		}

		streamReq, _ := jsoniter.Marshal(map[string]any{"text": "tick", "count": 3})
		sub, err := sess.RequestStream(ctx, payload.New(streamReq, nil))
		if err != nil {
			logger.Errorf("request-stream: %v", err)
		} else {
			for p := range sub.Payloads() {
				fmt.Printf("request-stream: %s\n", p.Data)
			}
			if err := sub.Err(); err != nil {
				logger.Errorf("request-stream ended: %v", err)
			}
		}

		in := make(chan payload.Payload)
		chSub, err := sess.RequestChannel(ctx, payload.New(mustJSON(demo.Message{Text: "channel-open"}), nil), in)
		if err != nil {
			logger.Errorf("request-channel: %v", err)
		} else {
			go func() {
				defer close(in)
				for i := 0; i < 2; i++ {
					select {
					case in <- payload.New(mustJSON(demo.Message{Seq: i, Text: "channel-item"}), nil):
					case <-ctx.Done():
						return
					}
				}
			}()
			for p := range chSub.Payloads() {
				fmt.Printf("request-channel: %s\n", p.Data)
			}
			if err := chSub.Err(); err != nil {
				logger.Errorf("request-channel ended: %v", err)
			}
		}
	},
	Example: "# rsocket-core dial --addr 127.0.0.1:7878",
}

func init() {
	dialCmd.Flags().StringVar(&dialAddr, "addr", "127.0.0.1:7878", "Address of the server to dial")
	dialCmd.Flags().StringVar(&dialTimeout, "timeout", "5s", "Per-interaction timeout")
	rootCmd.AddCommand(dialCmd)
}
