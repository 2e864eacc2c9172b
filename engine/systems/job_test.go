package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// pump calls ProcessMainThreadWork until done reports true or the timeout expires.
func pump(t *testing.T, js *JobSystem, done func() bool) int {
	t.Helper()
	processed := 0
	deadline := time.Now().Add(5 * time.Second)
	for !done() {
		require.True(t, time.Now().Before(deadline), "timed out waiting for jobs")
		processed += js.ProcessMainThreadWork()
		time.Sleep(time.Millisecond)
	}
	return processed
}

func newStartedJobSystem(t *testing.T, workers int) *JobSystem {
	t.Helper()
	js := NewJobSystem()
	require.NoError(t, js.Startup(workers))
	t.Cleanup(func() { _ = js.Shutdown() })
	return js
}

func TestMainPhaseRunsOnceAfterBackground(t *testing.T) {
	js := newStartedJobSystem(t, 2)

	var backgroundDone atomic.Bool
	mainCalls := 0
	handle := js.QueueWork(metadata.Work{
		Name: "sleepy",
		Background: func(interface{}) error {
			time.Sleep(10 * time.Millisecond)
			backgroundDone.Store(true)
			return nil
		},
		MainThread: func(interface{}) {
			assert.True(t, backgroundDone.Load())
			mainCalls++
		},
	})
	require.NotEqual(t, metadata.InvalidJobHandle, handle)

	// the background phase is still sleeping
	assert.Equal(t, 0, js.ProcessMainThreadWork())
	assert.Equal(t, 0, mainCalls)

	pump(t, js, func() bool { return mainCalls > 0 })
	assert.Equal(t, 0, js.ProcessMainThreadWork())
	assert.Equal(t, 1, mainCalls)
	assert.Equal(t, metadata.JobStateFinished, js.Status(handle))
}

func TestConcurrentProducers(t *testing.T) {
	js := newStartedJobSystem(t, 4)

	const producers = 8
	const perProducer = 100

	var background atomic.Int64
	mainCalls := 0
	var handlesMu sync.Mutex
	handles := map[metadata.JobHandle]struct{}{}

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		g.Go(func() error {
			for i := 0; i < perProducer; i++ {
				h := js.QueueWork(metadata.Work{
					Name: "count",
					Background: func(interface{}) error {
						background.Add(1)
						return nil
					},
					MainThread: func(interface{}) { mainCalls++ },
				})
				if h == metadata.InvalidJobHandle {
					return errors.New("invalid handle")
				}
				handlesMu.Lock()
				handles[h] = struct{}{}
				handlesMu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	processed := pump(t, js, func() bool { return mainCalls == producers*perProducer })
	assert.Equal(t, producers*perProducer, processed)
	assert.Equal(t, int64(producers*perProducer), background.Load())
	assert.Len(t, handles, producers*perProducer)
}

func TestPayloadIsHandedToEveryPhase(t *testing.T) {
	js := newStartedJobSystem(t, 1)

	type payload struct{ value int }
	p := &payload{value: 1}
	var seen *payload
	js.QueueWork(metadata.Work{
		Name: "payload",
		Background: func(data interface{}) error {
			data.(*payload).value++
			return nil
		},
		MainThread: func(data interface{}) { seen = data.(*payload) },
		Payload:    p,
	})

	pump(t, js, func() bool { return seen != nil })
	assert.Same(t, p, seen)
	assert.Equal(t, 2, seen.value)
}

func TestFailedBackgroundSkipsMainPhase(t *testing.T) {
	js := newStartedJobSystem(t, 1)

	boom := errors.New("decode failed")
	var failure error
	mainCalled := false
	handle := js.QueueWork(metadata.Work{
		Name:       "broken",
		Background: func(interface{}) error { return boom },
		MainThread: func(interface{}) { mainCalled = true },
		OnFailure:  func(_ interface{}, err error) { failure = err },
	})

	pump(t, js, func() bool { return failure != nil })
	assert.ErrorIs(t, failure, boom)
	assert.False(t, mainCalled)
	assert.Equal(t, metadata.JobStateFailed, js.Status(handle))
}

func TestPanickingBackgroundIsReportedAsFailure(t *testing.T) {
	js := newStartedJobSystem(t, 1)

	var failure error
	js.QueueWork(metadata.Work{
		Name:       "panics",
		Background: func(interface{}) error { panic("bad data") },
		OnFailure:  func(_ interface{}, err error) { failure = err },
	})

	pump(t, js, func() bool { return failure != nil })
	assert.Contains(t, failure.Error(), "bad data")
}

func TestMainPhaseCanQueueMoreWork(t *testing.T) {
	js := newStartedJobSystem(t, 2)

	var order []string
	js.QueueWork(metadata.Work{
		Name:       "outer",
		Background: func(interface{}) error { return nil },
		MainThread: func(interface{}) {
			order = append(order, "outer")
			js.QueueWork(metadata.Work{
				Name:       "inner",
				Background: func(interface{}) error { return nil },
				MainThread: func(interface{}) { order = append(order, "inner") },
			})
		},
	})

	pump(t, js, func() bool { return len(order) == 2 })
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestWorkQueuedBeforeStartup(t *testing.T) {
	js := NewJobSystem()
	t.Cleanup(func() { _ = js.Shutdown() })

	done := false
	handle := js.QueueWork(metadata.Work{
		Name:       "early",
		Background: func(interface{}) error { return nil },
		MainThread: func(interface{}) { done = true },
	})
	assert.Equal(t, metadata.JobStateQueued, js.Status(handle))
	assert.Equal(t, 1, js.Pending())

	require.NoError(t, js.Startup(0))
	assert.GreaterOrEqual(t, js.Workers(), 1)
	assert.Error(t, js.Startup(1))

	pump(t, js, func() bool { return done })
	assert.Equal(t, metadata.JobStateFinished, js.Status(handle))
}

func TestShutdownAbandonsQueuedWork(t *testing.T) {
	js := NewJobSystem()
	require.NoError(t, js.Startup(1))

	started := make(chan struct{})
	release := make(chan struct{})
	js.QueueWork(metadata.Work{
		Name: "blocker",
		Background: func(interface{}) error {
			close(started)
			<-release
			return nil
		},
	})
	<-started

	var ran atomic.Int32
	var queued []metadata.JobHandle
	for i := 0; i < 5; i++ {
		queued = append(queued, js.QueueWork(metadata.Work{
			Name: "never",
			Background: func(interface{}) error {
				ran.Add(1)
				return nil
			},
		}))
	}

	shutdownDone := make(chan struct{})
	go func() {
		_ = js.Shutdown()
		close(shutdownDone)
	}()
	require.Eventually(t, func() bool {
		js.mu.Lock()
		defer js.mu.Unlock()
		return js.quit
	}, time.Second, time.Millisecond)
	close(release)
	<-shutdownDone

	assert.Equal(t, int32(0), ran.Load())
	for _, h := range queued {
		assert.Equal(t, metadata.JobStateAbandoned, js.Status(h))
	}
	assert.Equal(t, metadata.InvalidJobHandle, js.QueueWork(metadata.Work{
		Name:       "late",
		Background: func(interface{}) error { return nil },
	}))
	assert.NoError(t, js.Shutdown())
}

func TestQueueWorkRequiresBackground(t *testing.T) {
	js := NewJobSystem()
	assert.Panics(t, func() { js.QueueWork(metadata.Work{Name: "empty"}) })
}

func TestFinalStatusIsReportedOnce(t *testing.T) {
	js := newStartedJobSystem(t, 1)

	done := false
	handle := js.QueueWork(metadata.Work{
		Name:       "once",
		Background: func(interface{}) error { return nil },
		MainThread: func(interface{}) { done = true },
	})
	pump(t, js, func() bool { return done })

	assert.Equal(t, metadata.JobStateFinished, js.Status(handle))
	assert.Equal(t, metadata.JobStateUnknown, js.Status(handle))
}

func TestFinalStatesAreBounded(t *testing.T) {
	js := NewJobSystem()

	js.mu.Lock()
	js.states[1] = metadata.JobStateQueued
	for h := metadata.JobHandle(2); h < retainedJobStates+12; h++ {
		js.retire(h, metadata.JobStateFinished)
	}
	js.mu.Unlock()

	assert.Equal(t, metadata.JobStateQueued, js.Status(1))
	assert.Equal(t, metadata.JobStateUnknown, js.Status(2))
	assert.Equal(t, metadata.JobStateFinished, js.Status(retainedJobStates+11))

	js.mu.Lock()
	defer js.mu.Unlock()
	assert.LessOrEqual(t, len(js.states), retainedJobStates+1)
}
