package service

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// referencePrefix marks wallet transaction references.
const referencePrefix = "WTX-"

// ReferenceGenerator issues lexically sortable transaction references.
type ReferenceGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewReferenceGenerator creates a generator backed by crypto/rand.
func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a new WTX-<ULID> reference.
func (g *ReferenceGenerator) Next(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return referencePrefix + ulid.MustNew(ulid.Timestamp(at), g.entropy).String()
}
