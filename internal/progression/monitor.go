// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progression

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Monitor tracks whether the portal is reachable. It is the client-side
// stand-in for the browser's online/offline events: components read
// Online() synchronously and can subscribe to offline-to-online
// transitions.
type Monitor struct {
	probeURL string
	client   *http.Client

	mu     sync.RWMutex
	online bool
	subs   []chan<- struct{}
}

// NewMonitor builds a monitor probing the portal's version endpoint.
// The monitor starts optimistic (online) until the first probe says otherwise.
func NewMonitor(baseURL string) *Monitor {
	return &Monitor{
		probeURL: strings.TrimRight(baseURL, "/") + "/api/version",
		client:   &http.Client{Timeout: 5 * time.Second},
		online:   true,
	}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// NotifyOnline registers a channel that receives a signal on every
// offline-to-online transition. Sends are non-blocking; a full channel
// drops the signal, which is fine since subscribers re-check state anyway.
func (m *Monitor) NotifyOnline(ch chan<- struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
}

// SetOnline records a connectivity observation and fires transition
// signals. Exported so the gateway can feed probe results from real
// upstream traffic instead of waiting for the next timer probe.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var subs []chan<- struct{}
	if online && !wasOnline {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run probes connectivity until ctx is canceled.
func (m *Monitor) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 15 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}

// probe performs one reachability check. Any HTTP response counts as
// online; only transport-level failure counts as offline.
func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
