package reference

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFormat(t *testing.T) {
	a := NewULIDAllocator("psz")

	ref, err := a.Allocate()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "PSZ-"), ref)
	assert.Len(t, ref, len("PSZ-")+26)

	prefix, id, err := Parse(ref)
	require.NoError(t, err)
	assert.Equal(t, "PSZ", prefix)
	assert.WithinDuration(t, time.Now(), time.UnixMilli(int64(id.Time())), 5*time.Second)
}

func TestAllocateWithoutPrefix(t *testing.T) {
	ref, err := NewULIDAllocator("").Allocate()
	require.NoError(t, err)
	assert.Len(t, ref, 26)
}

func TestAllocateIsUniqueAndOrderedWithinMillisecond(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := NewULIDAllocator("PSZ")
	a.now = func() time.Time { return fixed }

	prev := ""
	for i := 0; i < 1000; i++ {
		ref, err := a.Allocate()
		require.NoError(t, err)
		assert.Greater(t, ref, prev)
		prev = ref
	}
}

func TestAllocateConcurrently(t *testing.T) {
	a := NewULIDAllocator("PSZ")

	const workers, each = 16, 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*each)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				ref, err := a.Allocate()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[ref] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*each)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestAllocateSurfacesEntropyFailure(t *testing.T) {
	a := newULIDAllocator("PSZ", failingReader{}, time.Now)

	_, err := a.Allocate()
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestParseRejectsGarbage(t *testing.T) {
	_, _, err := Parse("PSZ-not-a-ulid")
	assert.Error(t, err)
}
