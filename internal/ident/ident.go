// Package ident generates identifiers for cycles and records.
package ident

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
// Implemented by UUIDv7 (production) and Fixed (tests).
type Generator interface {
	Generate() string
}

// UUIDv7 generates time-sortable UUIDv7 identifiers, so cycle and record IDs
// sort by creation time.
//
// Thread-safety: UUIDv7 is stateless and safe for concurrent use.
type UUIDv7 struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Fixed returns predetermined identifiers, for deterministic tests and
// golden output.
//
// Thread-safety: Fixed is safe for concurrent use.
type Fixed struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixed creates a generator that returns tokens in order.
func NewFixed(tokens ...string) *Fixed {
	return &Fixed{tokens: tokens}
}

// Generate returns the next token. Panics when the tokens are exhausted so
// tests notice an unexpected extra ID.
func (g *Fixed) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("ident.Fixed: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Counter returns prefix-1, prefix-2, ... without limit.
type Counter struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCounter creates a Counter with the given prefix.
func NewCounter(prefix string) *Counter {
	return &Counter{prefix: prefix}
}

// Generate returns the next identifier.
func (c *Counter) Generate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("%s-%d", c.prefix, c.n)
}
