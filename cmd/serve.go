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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/rsocket-core/rsocket/common"
	"github.com/rsocket-core/rsocket/confengine"
	"github.com/rsocket-core/rsocket/demo"
	"github.com/rsocket-core/rsocket/engine"
	"github.com/rsocket-core/rsocket/internal/sigs"
	"github.com/rsocket-core/rsocket/logger"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept duplex connections and serve the demo echo responder",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := maxprocs.Set(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to set GOMAXPROCS: %v\n", err)
		}

		conf, err := confengine.LoadConfigPath(serveConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		eng, err := engine.New(conf, common.GetBuildInfo(), demo.Acceptor())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create engine: %v\n", err)
			os.Exit(1)
		}
		if err := eng.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
			os.Exit(1)
		}

		var reloadTotal int
		for {
			select {
			case <-sigs.Terminate():
				if err := eng.Stop(); err != nil {
					logger.Errorf("engine shutdown: %v", err)
				}
				return

			case <-sigs.Reload():
				reloadTotal++

				conf, err := confengine.LoadConfigPath(serveConfigPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "failed to load config (count=%d): %v\n", reloadTotal, err)
					continue
				}

				start := time.Now()
				if err := eng.Reload(conf); err != nil {
					logger.Errorf("failed to reload config: %v", err)
				}
				logger.Infof("reload (count=%d) took %s", reloadTotal, time.Since(start))
			}
		}
	},
	Example: "# rsocket-core serve --config rsocket.yaml",
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "rsocket.yaml", "Configuration file path")
	rootCmd.AddCommand(serveCmd)
}
