package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs_Increments(t *testing.T) {
	ids := NewSequentialIDs("node")

	assert.Equal(t, "node-1", ids.NewID())
	assert.Equal(t, "node-2", ids.NewID())
	assert.Equal(t, "node-3", ids.NewID())
}

func TestSequentialIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "id-1", NewSequentialIDs("").NewID())
}

func TestSequentialIDs_Reset(t *testing.T) {
	ids := NewSequentialIDs("p")
	ids.NewID()
	ids.NewID()

	ids.Reset()

	assert.Equal(t, "p-1", ids.NewID())
}

func TestSequentialIDs_ConcurrentUnique(t *testing.T) {
	ids := NewSequentialIDs("c")

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids.NewID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}
