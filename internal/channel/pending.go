// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package channel

import "sync"

// pendingTable matches responses to in-flight requests by correlation ID.
type pendingTable struct {
	mu      sync.Mutex
	waiters map[string]chan Envelope
}

func newPendingTable() *pendingTable {
	return &pendingTable{waiters: map[string]chan Envelope{}}
}

// register creates a one-shot waiter for the given correlation ID.
func (p *pendingTable) register(id string) chan Envelope {
	ch := make(chan Envelope, 1)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	return ch
}

// resolve delivers a response to its waiter. Responses with no waiter
// (timed out or unsolicited) are dropped.
func (p *pendingTable) resolve(env Envelope) bool {
	p.mu.Lock()
	ch, ok := p.waiters[env.CorrelationID]
	if ok {
		delete(p.waiters, env.CorrelationID)
	}
	p.mu.Unlock()
	if ok {
		ch <- env
	}
	return ok
}

// cancel discards a waiter, typically after its request timed out.
func (p *pendingTable) cancel(id string) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}
