package systems

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/playground/engine/containers"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// Final job states kept for Status after the job ended.
const retainedJobStates = 1024

type jobEntry struct {
	handle metadata.JobHandle
	work   metadata.Work
	err    error
}

// JobSystem runs the background phase of queued work on a fixed pool of workers and
// hands completed work back to the main thread, which runs the second phase from
// ProcessMainThreadWork. Work is picked up in FIFO order; completion order is not
// defined.
type JobSystem struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      *containers.RingQueue[*jobEntry]
	completed  []*jobEntry
	states     map[metadata.JobHandle]metadata.JobState
	retired    *containers.RingQueue[metadata.JobHandle]
	nextHandle metadata.JobHandle
	numWorkers int
	started    bool
	quit       bool
	wg         sync.WaitGroup
	logger     *log.Logger
}

func NewJobSystem() *JobSystem {
	js := &JobSystem{
		queue:   containers.NewRingQueue[*jobEntry](64),
		states:  make(map[metadata.JobHandle]metadata.JobState),
		retired: containers.NewRingQueue[metadata.JobHandle](retainedJobStates),
		logger:  core.Logger().With("system", "jobs"),
	}
	js.cond = sync.NewCond(&js.mu)
	return js
}

// Startup spawns the workers. A count of zero or less uses one worker per logical CPU,
// minus one for the main thread, with a minimum of one.
func (js *JobSystem) Startup(numWorkers int) error {
	if numWorkers <= 0 {
		numWorkers = max(runtime.NumCPU()-1, 1)
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	if js.started {
		return fmt.Errorf("job system already started: %w", core.ErrInvalidOperation)
	}
	if js.quit {
		return fmt.Errorf("job system was shut down: %w", core.ErrInvalidOperation)
	}
	js.started = true
	js.numWorkers = numWorkers

	for i := 0; i < numWorkers; i++ {
		js.wg.Add(1)
		go js.worker(i)
	}
	js.logger.Info("job system started", "workers", numWorkers)
	return nil
}

// Workers returns the number of running workers.
func (js *JobSystem) Workers() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.numWorkers
}

// QueueWork appends work to the queue and wakes one worker. It never blocks on the
// work itself. After Shutdown it logs and returns InvalidJobHandle.
func (js *JobSystem) QueueWork(work metadata.Work) metadata.JobHandle {
	core.Assertf(work.Background != nil, core.ErrInvalidOperation, "work %q has no background phase", work.Name)

	js.mu.Lock()
	defer js.mu.Unlock()
	if js.quit {
		js.logger.Error("work queued after shutdown", "work", work.Name)
		return metadata.InvalidJobHandle
	}

	js.nextHandle++
	entry := &jobEntry{handle: js.nextHandle, work: work}
	js.queue.Enqueue(entry)
	js.states[entry.handle] = metadata.JobStateQueued
	js.cond.Signal()
	return entry.handle
}

// Status reports where a job is in its lifecycle. A final state (finished, failed or
// abandoned) is reported once and then forgotten; it is also forgotten once
// retainedJobStates newer jobs have ended. Forgotten handles report JobStateUnknown.
func (js *JobSystem) Status(handle metadata.JobHandle) metadata.JobState {
	js.mu.Lock()
	defer js.mu.Unlock()
	state := js.states[handle]
	if isFinal(state) {
		delete(js.states, handle)
	}
	return state
}

// retire records a final state and drops the oldest final states past the window.
// Callers hold js.mu.
func (js *JobSystem) retire(handle metadata.JobHandle, state metadata.JobState) {
	js.states[handle] = state
	js.retired.Enqueue(handle)
	for js.retired.Len() > retainedJobStates {
		old, _ := js.retired.Dequeue()
		if isFinal(js.states[old]) {
			delete(js.states, old)
		}
	}
}

func isFinal(state metadata.JobState) bool {
	switch state {
	case metadata.JobStateFinished, metadata.JobStateFailed, metadata.JobStateAbandoned:
		return true
	}
	return false
}

// Pending returns the number of jobs still waiting for a worker.
func (js *JobSystem) Pending() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.queue.Len()
}

// ProcessMainThreadWork runs the main-thread phase of every job whose background
// phase completed before the call. Jobs completing while it runs are left for the next
// call. Returns the number of phases executed.
func (js *JobSystem) ProcessMainThreadWork() int {
	js.mu.Lock()
	batch := js.completed
	js.completed = nil
	for _, e := range batch {
		if e.err == nil {
			js.states[e.handle] = metadata.JobStateRunningMainPhase
		}
	}
	js.mu.Unlock()

	for _, e := range batch {
		if e.err != nil {
			e.work.OnFailure(e.work.Payload, e.err)
			continue
		}
		e.work.MainThread(e.work.Payload)

		js.mu.Lock()
		js.retire(e.handle, metadata.JobStateFinished)
		js.mu.Unlock()
	}
	return len(batch)
}

// Shutdown stops the workers once they finish their current job. Work still queued,
// or waiting for its main-thread phase, is abandoned.
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.quit {
		js.mu.Unlock()
		return nil
	}
	js.quit = true
	js.cond.Broadcast()
	js.mu.Unlock()

	js.wg.Wait()

	js.mu.Lock()
	defer js.mu.Unlock()
	abandoned := 0
	for _, e := range js.queue.Drain() {
		js.retire(e.handle, metadata.JobStateAbandoned)
		abandoned++
	}
	for _, e := range js.completed {
		js.retire(e.handle, metadata.JobStateAbandoned)
		abandoned++
	}
	js.completed = nil
	js.logger.Info("job system shut down", "abandoned", abandoned)
	return nil
}

func (js *JobSystem) worker(index int) {
	defer js.wg.Done()
	for {
		js.mu.Lock()
		for js.queue.IsEmpty() && !js.quit {
			js.cond.Wait()
		}
		if js.quit {
			js.mu.Unlock()
			return
		}
		entry, _ := js.queue.Dequeue()
		js.states[entry.handle] = metadata.JobStateRunningBackground
		js.mu.Unlock()

		err := runBackground(entry)
		if err != nil {
			js.logger.Error("job failed", "work", entry.work.Name, "worker", index, "err", err)
		}

		js.mu.Lock()
		entry.err = err
		switch {
		case err != nil:
			js.retire(entry.handle, metadata.JobStateFailed)
			if entry.work.OnFailure != nil {
				js.completed = append(js.completed, entry)
			}
		case entry.work.MainThread != nil:
			js.states[entry.handle] = metadata.JobStateBackgroundDone
			js.completed = append(js.completed, entry)
		default:
			js.retire(entry.handle, metadata.JobStateFinished)
		}
		js.mu.Unlock()
	}
}

func runBackground(entry *jobEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", entry.work.Name, r)
		}
	}()
	return entry.work.Background(entry.work.Payload)
}
