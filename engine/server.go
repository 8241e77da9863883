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

import (
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsocket-core/rsocket/internal/sigs"
	"github.com/rsocket-core/rsocket/logger"
)

func (e *Engine) setupServer() {
	if e.svr == nil {
		return
	}

	e.svr.RegisterGetRoute("/metrics", e.routeMetrics)
	e.svr.RegisterGetRoute("/watch", e.routeWatch)
	e.svr.RegisterPostRoute("/-/logger", e.routeLogger)
	e.svr.RegisterPostRoute("/-/reload", e.routeReload)
}

func (e *Engine) routeMetrics(w http.ResponseWriter, r *http.Request) {
	e.recordMetrics()
	promhttp.Handler().ServeHTTP(w, r)
}

func (e *Engine) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	w.Write([]byte(`{"status": "success"}`))
}

func (e *Engine) routeReload(w http.ResponseWriter, r *http.Request) {
	if err := sigs.SelfReload(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
	}
}

// routeWatch streams newline-delimited JSON session lifecycle events
// until maxMessage have been sent or timeout elapses between two.
func (e *Engine) routeWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	maxMessage, _ := strconv.Atoi(r.URL.Query().Get("max_message"))
	if maxMessage <= 0 {
		maxMessage = 100
	}

	timeout, _ := time.ParseDuration(r.URL.Query().Get("timeout"))
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	queue := e.events.Subscribe(16)
	defer e.events.Unsubscribe(queue)

	w.Header().Set("Content-Type", "application/x-ndjson")

	for i := 0; i < maxMessage; i++ {
		item, ok := queue.PopTimeout(timeout)
		if !ok {
			return
		}
		data, err := jsoniter.Marshal(item)
		if err != nil {
			continue
		}
		w.Write(data)
		w.Write([]byte{'\n'})
		flusher.Flush()
	}
}
