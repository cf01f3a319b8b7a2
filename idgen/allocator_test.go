package idgen

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/autoid/clog"
)

var fallbackNode = Node{WorkerID: 6, DatacenterID: 11}

func newTestAllocator(t *testing.T, c Coordinator, timeout time.Duration) *Allocator {
	t.Helper()
	a, err := NewAllocator(c, timeout, WithLocalDeriver(fakeDeriver{node: fallbackNode}))
	require.NoError(t, err)
	return a
}

func TestAllocateCoordinated(t *testing.T) {
	want := Node{WorkerID: 1, DatacenterID: 2}
	a := newTestAllocator(t, &fakeCoordinator{node: want}, time.Second)

	node, source := a.Allocate(context.Background())
	assert.Equal(t, want, node)
	assert.Equal(t, SourceCoordinated, source)
}

func TestAllocateStatic(t *testing.T) {
	want := Node{WorkerID: 3, DatacenterID: 4}
	a := newTestAllocator(t, NewStaticCoordinator(want), time.Second)

	node, source := a.Allocate(context.Background())
	assert.Equal(t, want, node)
	assert.Equal(t, SourceStatic, source)
}

func TestAllocateFallsBack(t *testing.T) {
	tests := []struct {
		name        string
		coordinator Coordinator
		released    int32
	}{
		{name: "no coordinator", coordinator: nil},
		{name: "acquire error", coordinator: &fakeCoordinator{err: ErrNoAvailableSlot}},
		{name: "timeout", coordinator: &fakeCoordinator{delay: time.Minute}},
		{name: "panic", coordinator: &fakeCoordinator{panicVal: "boom"}},
		{name: "invalid node", coordinator: &fakeCoordinator{node: Node{WorkerID: 99}}, released: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAllocator(t, tt.coordinator, 20*time.Millisecond)

			start := time.Now()
			node, source := a.Allocate(context.Background())
			assert.Less(t, time.Since(start), 5*time.Second)
			assert.Equal(t, fallbackNode, node)
			assert.Equal(t, SourceFallback, source)

			if fc, ok := tt.coordinator.(*fakeCoordinator); ok {
				assert.Equal(t, tt.released, fc.released.Load())
			}
		})
	}
}

func TestAllocateFallbackIsRepeatable(t *testing.T) {
	a, err := NewAllocator(&fakeCoordinator{err: ErrNoAvailableSlot}, time.Second)
	require.NoError(t, err)

	first, s1 := a.Allocate(context.Background())
	second, s2 := a.Allocate(context.Background())
	assert.Equal(t, SourceFallback, s1)
	assert.Equal(t, SourceFallback, s2)
	assert.Equal(t, first, second)
}

func TestStaticCoordinatorRejectsInvalidNode(t *testing.T) {
	_, err := NewStaticCoordinator(Node{DatacenterID: 16}).Acquire(context.Background())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAllocateSourceIgnoresCoordinatorName(t *testing.T) {
	want := Node{WorkerID: 5, DatacenterID: 6}
	a := newTestAllocator(t, &fakeCoordinator{name: "static", node: want}, time.Second)

	node, source := a.Allocate(context.Background())
	assert.Equal(t, want, node)
	assert.Equal(t, SourceCoordinated, source)
}

func TestAllocateReleasesRejectedNodeWithFreshContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "json", Output: "buffer"}, clog.WithBuffer(&buf))
	require.NoError(t, err)

	fc := &fakeCoordinator{node: Node{WorkerID: 99}, releaseErr: errors.New("connection reset")}
	a, err := NewAllocator(fc, time.Second, WithLogger(logger), WithLocalDeriver(fakeDeriver{node: fallbackNode}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	node, source := a.Allocate(ctx)
	assert.Equal(t, fallbackNode, node)
	assert.Equal(t, SourceFallback, source)

	assert.Equal(t, int32(1), fc.released.Load())
	assert.Equal(t, "<nil>", fc.releaseCtxErr.Load())
	assert.Contains(t, buf.String(), "release rejected node slot failed")
	assert.Contains(t, buf.String(), "connection reset")
}
