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

// Package engine is the process-level orchestrator: it owns the TCP
// listener, spins up one session.Session per accepted connection, and
// runs the admin HTTP server alongside it.
package engine

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/rsocket-core/rsocket/common"
	"github.com/rsocket-core/rsocket/confengine"
	"github.com/rsocket-core/rsocket/internal/pubsub"
	"github.com/rsocket-core/rsocket/internal/rescue"
	"github.com/rsocket-core/rsocket/internal/tracekit"
	"github.com/rsocket-core/rsocket/logger"
	"github.com/rsocket-core/rsocket/rsocket/responder"
	"github.com/rsocket-core/rsocket/rsocket/session"
	"github.com/rsocket-core/rsocket/rsocket/streamid"
	"github.com/rsocket-core/rsocket/server"
	"github.com/rsocket-core/rsocket/transport"
)

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "rsocket-core.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// Engine is the top-level process object: construct one with New, call
// Start, and Stop when shutting down.
type Engine struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg       Config
	buildInfo common.BuildInfo
	acceptor  responder.Acceptor

	ln     *transport.Listener
	svr    *server.Server
	events *pubsub.PubSub

	wg sync.WaitGroup
}

// New loads the "server" config section, sets up the global logger, and
// prepares (without yet binding a socket) the admin server. acceptor
// installs the Responder served to every accepted connection's peer.
func New(conf *confengine.Config, buildInfo common.BuildInfo, acceptor responder.Acceptor) (*Engine, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("server", &cfg); err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		acceptor:  acceptor,
		svr:       svr,
		events:    pubsub.New(),
	}, nil
}

// Start binds the listener, starts the admin server (if enabled), and
// begins accepting connections. It returns once the listener is bound;
// accepting and serving happen in background goroutines.
func (e *Engine) Start() error {
	ln, err := transport.Listen(e.cfg.listenAddress(), e.cfg.MaxConns)
	if err != nil {
		return err
	}
	e.ln = ln

	e.setupServer()
	if e.svr != nil {
		go func() {
			err := e.svr.ListenAndServe()
			if err != nil && !errors.Is(err, io.EOF) {
				logger.Errorf("admin server stopped: %v", err)
			}
		}()
	}

	e.wg.Add(1)
	go e.acceptLoop()

	logger.Infof("engine listening on %s", ln.Addr())
	return nil
}

func (e *Engine) acceptLoop() {
	defer e.wg.Done()
	for {
		conn, addr, err := e.ln.Accept()
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			acceptErrors.Inc()
			logger.Errorf("accept: %v", err)
			return
		}

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			defer rescue.HandleCrash()
			e.serveConn(conn, addr)
		}()
	}
}

func (e *Engine) serveConn(conn *transport.Conn, addr net.Addr) {
	defer conn.Close()

	tc := tracekit.NewTraceContext()
	activeSessions.Inc()
	e.events.Publish(newSessionEvent(eventSessionOpened, tc.String(), addr.String(), nil))
	logger.Infof("accepted connection %s (trace=%s)", addr, tc)

	defer func() {
		activeSessions.Dec()
	}()

	sess := session.New(e.ctx, session.Config{
		Allocator:         streamid.Server(),
		Acceptor:          e.acceptor,
		MTU:               e.cfg.MTU,
		KeepaliveInterval: e.cfg.KeepaliveInterval,
		KeepaliveLifetime: e.cfg.KeepaliveLifetime,
		Logger:            logger.Current(),
	}, conn.Outbound())

	err := sess.Serve(conn.Inbound())
	e.events.Publish(newSessionEvent(eventSessionClosed, tc.String(), addr.String(), err))
	if err != nil {
		logger.Warnf("session %s (trace=%s) ended: %v", addr, tc, err)
	}
}

func (e *Engine) recordMetrics() {
	uptime.Set(float64(time.Now().Unix() - common.Started()))
	buildInfoGauge.WithLabelValues(e.buildInfo.Version, e.buildInfo.GitHash, e.buildInfo.Time).Inc()
}

// Reload re-reads the logger section of conf and applies it; the
// acceptor's own behavior is fixed at New time, mirroring the domain's
// lack of any other hot-reloadable policy.
func (e *Engine) Reload(conf *confengine.Config) error {
	return setupLogger(conf)
}

// Stop closes the listener (unblocking acceptLoop), shuts the admin
// server down, cancels every in-flight session's context, and waits for
// all goroutines to exit. Returns the aggregate of whatever partial
// failures occurred along the way; Close/Shutdown errors don't stop the
// rest of teardown from proceeding.
func (e *Engine) Stop() error {
	var result *multierror.Error

	e.cancel()
	if e.ln != nil {
		if err := e.ln.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close listener"))
		}
	}
	if e.svr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.svr.Shutdown(ctx); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "shutdown admin server"))
		}
	}
	e.wg.Wait()

	return result.ErrorOrNil()
}
