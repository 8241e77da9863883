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

// Config is the "server" section of the process's YAML configuration: the
// TCP socket every duplex session is accepted on, and the per-session
// defaults negotiated onto it.
type Config struct {
	Address           string        `config:"address"`
	MaxConns          int           `config:"maxConns"`
	MTU               int           `config:"mtu"`
	KeepaliveInterval time.Duration `config:"keepaliveInterval"`
	KeepaliveLifetime time.Duration `config:"keepaliveLifetime"`
}

func (c Config) listenAddress() string {
	if c.Address == "" {
		return "0.0.0.0:7878"
	}
	return c.Address
}
