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

package keepalive

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchdogFiresAfterSilence(t *testing.T) {
	var died atomic.Bool
	w := NewWatchdog(40*time.Millisecond, func() { died.Store(true) })
	go w.Run()
	defer w.Stop()

	require.Eventually(t, died.Load, time.Second, 5*time.Millisecond)
}

func TestWatchdogTouchPostponesDeath(t *testing.T) {
	var died atomic.Bool
	w := NewWatchdog(60*time.Millisecond, func() { died.Store(true) })
	go w.Run()
	defer w.Stop()

	stop := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(stop) {
		w.Touch()
		time.Sleep(10 * time.Millisecond)
	}
	assert.False(t, died.Load(), "repeated Touch should keep the watchdog alive")
}

func TestWatchdogStopPreventsDeath(t *testing.T) {
	var died atomic.Bool
	w := NewWatchdog(20*time.Millisecond, func() { died.Store(true) })
	w.Stop()
	w.Run()
	assert.False(t, died.Load(), "Stop before Run should make Run return immediately")
}

func TestWatchdogStopIsIdempotent(t *testing.T) {
	w := NewWatchdog(time.Second, func() {})
	w.Stop()
	w.Stop()
}

func TestWatchdogZeroLifetimeNeverFires(t *testing.T) {
	var died atomic.Bool
	w := NewWatchdog(0, func() { died.Store(true) })
	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero lifetime should return immediately")
	}
	assert.False(t, died.Load())
}

func TestOriginatorSendsRepeatedly(t *testing.T) {
	var sends atomic.Int32
	o := NewOriginator(10*time.Millisecond, func() { sends.Add(1) })
	go o.Run()
	defer o.Stop()

	require.Eventually(t, func() bool { return sends.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestOriginatorStopIsIdempotent(t *testing.T) {
	o := NewOriginator(time.Second, func() {})
	o.Stop()
	o.Stop()
}
