package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](2)
	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	rq.Enqueue(1)
	rq.Enqueue(2)
	assert.True(t, rq.IsFull())

	v, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// wrap around, then grow with the read index in the middle of the buffer
	rq.Enqueue(3)
	rq.Enqueue(4)
	rq.Enqueue(5)
	assert.Equal(t, 4, rq.Len())

	head, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 2, head)
	assert.Equal(t, []int{2, 3, 4, 5}, rq.Drain())
	assert.True(t, rq.IsEmpty())
}

func TestRingQueueZeroSize(t *testing.T) {
	rq := NewRingQueue[string](0)
	rq.Enqueue("a")
	rq.Enqueue("b")
	assert.Equal(t, []string{"a", "b"}, rq.Drain())
}
