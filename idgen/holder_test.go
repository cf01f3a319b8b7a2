package idgen

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderPanicsBeforeInit(t *testing.T) {
	var h Holder
	assert.False(t, h.Initialized())
	assert.PanicsWithError(t, ErrNotInitialized.Error(), func() { h.NextID() })
	assert.PanicsWithError(t, ErrNotInitialized.Error(), func() { _ = h.NextIDString() })
}

func TestHolderInitOnce(t *testing.T) {
	h := NewHolder()
	assert.ErrorIs(t, h.Init(nil), ErrInvalidInput)

	first := newTestGenerator(t, Node{WorkerID: 1}, newFakeClock(10))
	second := newTestGenerator(t, Node{WorkerID: 2}, newFakeClock(10))

	require.NoError(t, h.Init(first))
	assert.True(t, h.Initialized())
	assert.ErrorIs(t, h.Init(second), ErrAlreadyInitialized)

	// 仍然使用第一次绑定的生成器
	assert.Equal(t, int64(1), Decompose(h.NextID()).WorkerID)
	assert.NotEmpty(t, h.NextIDString())
}

func TestHolderConcurrentInit(t *testing.T) {
	h := NewHolder()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := NewGenerator(Node{WorkerID: int64(i % 8)})
			if err != nil {
				return
			}
			if h.Init(g) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Positive(t, h.NextID())
}
