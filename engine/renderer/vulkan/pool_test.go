package vulkan

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeCallSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(ImageManagement, func() error {
				inside++
				maxSeen = max(maxSeen, inside)
				inside--
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestSafeCallReturnsError(t *testing.T) {
	pool := NewVulkanLockPool()
	boom := errors.New("boom")
	assert.ErrorIs(t, pool.SafeCall(BufferManagement, func() error { return boom }), boom)
}

func TestSafeQueueCall(t *testing.T) {
	pool := NewVulkanLockPool()
	assert.Panics(t, func() {
		_ = pool.SafeQueueCall(3, func() error { return nil })
	})

	pool.SetQueueFamily(3)
	pool.SetQueueFamily(3)
	called := false
	require.NoError(t, pool.SafeQueueCall(3, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}
