package metadata

/** @brief Identifies a queued job. Handles increase monotonically and are never reused. */
type JobHandle uint64

/** @brief Returned when work could not be queued. */
const InvalidJobHandle JobHandle = 0

/** @brief The lifecycle position of a job. */
type JobState int

const (
	/** @brief The handle is unknown to the job system. */
	JobStateUnknown JobState = iota
	/** @brief Waiting in the queue for a worker. */
	JobStateQueued
	/** @brief A worker is executing the background phase. */
	JobStateRunningBackground
	/** @brief The background phase returned; the main-thread phase is pending. */
	JobStateBackgroundDone
	/** @brief The main-thread phase is executing. */
	JobStateRunningMainPhase
	/** @brief Both phases completed. */
	JobStateFinished
	/** @brief The background phase returned an error. The main-thread phase never runs. */
	JobStateFailed
	/** @brief The job system shut down before a worker picked the job up. */
	JobStateAbandoned
)

func (s JobState) String() string {
	switch s {
	case JobStateQueued:
		return "queued"
	case JobStateRunningBackground:
		return "running-background"
	case JobStateBackgroundDone:
		return "background-done"
	case JobStateRunningMainPhase:
		return "running-main-phase"
	case JobStateFinished:
		return "finished"
	case JobStateFailed:
		return "failed"
	case JobStateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

/** @brief Executed on a worker goroutine. It must not touch state confined to the main thread. */
type JobBackground func(payload interface{}) error

/** @brief Executed on the main thread once the background phase succeeded. */
type JobMainThread func(payload interface{})

/** @brief Executed on the main thread when the background phase failed. */
type JobOnFailure func(payload interface{}, err error)

/**
 * @brief A unit of deferred work. The payload is owned by the work item and handed to
 * every phase.
 */
type Work struct {
	/** @brief A name used in logs. */
	Name string
	/** @brief The background phase. Required. */
	Background JobBackground
	/** @brief The main-thread phase. Optional. */
	MainThread JobMainThread
	/** @brief Invoked on the main thread instead of MainThread when Background fails. Optional. */
	OnFailure JobOnFailure
	/** @brief Data passed to every phase. */
	Payload interface{}
}
