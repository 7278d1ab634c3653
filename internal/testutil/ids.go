// Package testutil provides deterministic helpers and a shared conformance
// suite for tree.Backend implementations.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable identifiers: "<prefix>-1", "<prefix>-2", ...
//
// This enables golden-file comparison of assembled trees, which include ids.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. If prefix is empty, "id" is used.
// The first call to NewID returns "<prefix>-1".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next identifier.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence. After Reset, the next NewID returns "<prefix>-1".
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
