// Package reference allocates human-presentable transaction reference codes.
package reference

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Allocator hands out reference codes that are unique for the lifetime of
// the transaction log.
type Allocator interface {
	Allocate() (string, error)
}

// ULIDAllocator composes a millisecond timestamp with monotonic random
// entropy. Codes sort by allocation time, e.g. PSZ-01HZX3M8Q6W9B0T4K2N5R7YVDE.
type ULIDAllocator struct {
	prefix  string
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var _ Allocator = (*ULIDAllocator)(nil)

func NewULIDAllocator(prefix string) *ULIDAllocator {
	return newULIDAllocator(prefix, rand.Reader, time.Now)
}

func newULIDAllocator(prefix string, source io.Reader, now func() time.Time) *ULIDAllocator {
	return &ULIDAllocator{
		prefix:  strings.ToUpper(strings.TrimSpace(prefix)),
		entropy: ulid.Monotonic(source, 0),
		now:     now,
	}
}

// Allocate is safe for concurrent use. An error means the entropy source
// failed or the per-millisecond counter overflowed.
func (a *ULIDAllocator) Allocate() (string, error) {
	a.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(a.now()), a.entropy)
	a.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("allocate reference: %w", err)
	}

	if a.prefix == "" {
		return id.String(), nil
	}
	return a.prefix + "-" + id.String(), nil
}

// Parse splits a reference code into prefix and ULID.
func Parse(ref string) (string, ulid.ULID, error) {
	prefix, raw := "", ref
	if i := strings.LastIndexByte(ref, '-'); i >= 0 {
		prefix, raw = ref[:i], ref[i+1:]
	}

	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return prefix, id, nil
}
