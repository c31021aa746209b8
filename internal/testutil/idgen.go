package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator generates ids "prefix-1", "prefix-2", ... in order.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario with the same generator produces
// byte-identical documents and activity traces.
//
// Implements store.IDGenerator.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator with the given prefix.
// An empty prefix defaults to "id".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
