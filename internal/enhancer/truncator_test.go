package enhancer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTruncator_DefersLoading(t *testing.T) {
	tr, ok := NewTruncator("gpt-4o-mini").(*lazyTruncator)
	require.True(t, ok)
	assert.Nil(t, tr.inner)

	var mu sync.Mutex
	var loads []string
	tr.load = func(model string) Truncator {
		mu.Lock()
		defer mu.Unlock()
		loads = append(loads, model)
		return WordTruncator{}
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "one two", tr.Truncate("one two three", 2))
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"gpt-4o-mini"}, loads)
}
