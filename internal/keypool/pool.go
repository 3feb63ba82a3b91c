// Package keypool manages the ordered pool of provider API credentials and
// the rotation cursor used to survive per-key rate limiting.
package keypool

import (
	"strings"
	"sync"
)

// SlotStatus describes one credential slot for the admin key audit.
type SlotStatus struct {
	Slot       int  `json:"slot"`
	Configured bool `json:"configured"`
	Active     bool `json:"active"`
}

// Pool holds an ordered, fixed-size set of credential slots and a cursor.
// The cursor is instance state, guarded by a mutex, so concurrent flows
// sharing a pool never interfere through hidden globals.
type Pool struct {
	mu     sync.Mutex
	slots  []string
	cursor int
}

// New creates a pool from the given slots. Slot values are trimmed; empty
// slots are kept in place so slot numbering stays stable for auditing.
// The cursor starts at the first configured slot, if any.
func New(slots []string) *Pool {
	trimmed := make([]string, len(slots))
	for i, s := range slots {
		trimmed[i] = strings.TrimSpace(s)
	}
	p := &Pool{slots: trimmed}
	p.cursor = p.nextConfigured(0)
	return p
}

// nextConfigured returns the index of the first non-empty slot at or after
// start (wrapping), or start itself when every slot is empty. Caller holds mu
// or the pool is not yet shared.
func (p *Pool) nextConfigured(start int) int {
	if len(p.slots) == 0 {
		return 0
	}
	for i := 0; i < len(p.slots); i++ {
		idx := (start + i) % len(p.slots)
		if p.slots[idx] != "" {
			return idx
		}
	}
	return start
}

// Size returns the number of slots, configured or not.
func (p *Pool) Size() int {
	return len(p.slots)
}

// HasCredentials reports whether at least one slot is configured.
func (p *Pool) HasCredentials() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		if s != "" {
			return true
		}
	}
	return false
}

// Current returns the credential at the cursor. It never blocks and never
// fails; when all slots are empty it returns "" and the caller must treat
// that as a configuration error.
func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.slots) == 0 {
		return ""
	}
	return p.slots[p.cursor]
}

// Advance moves the cursor to the next configured slot, wrapping modulo the
// pool size, and returns the newly current credential. The search is bounded
// by the pool size, so an all-empty pool cannot loop.
func (p *Pool) Advance() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.slots) == 0 {
		return ""
	}
	p.cursor = p.nextConfigured((p.cursor + 1) % len(p.slots))
	return p.slots[p.cursor]
}

// Audit reports per-slot configuration status. Slot numbers are 1-based to
// match the dashboard's key-slot naming.
func (p *Pool) Audit() []SlotStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SlotStatus, len(p.slots))
	for i, s := range p.slots {
		out[i] = SlotStatus{
			Slot:       i + 1,
			Configured: s != "",
			Active:     i == p.cursor,
		}
	}
	return out
}
