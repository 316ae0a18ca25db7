package queue

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// Job identifies one artifact to process. When Payload is set the job is
// an in-memory artifact extracted from a container and the filesystem is
// not consulted for its content; Dirname then encodes the provenance
// chain of parent containers.
type Job struct {
	Basename string
	Dirname  string
	Payload  []byte
}

// AbsPath joins the provenance chain with the artifact's own name.
func (j *Job) AbsPath() string {
	return filepath.Join(j.Dirname, j.Basename)
}

const (
	// memoryPollInterval is how often a blocked enqueue re-checks free memory.
	memoryPollInterval = 100 * time.Millisecond
	// memoryWaitTimeout bounds how long an enqueue may block on back-pressure.
	memoryWaitTimeout = 20 * time.Second
)

// virtualMemory is swappable in tests.
var virtualMemory = func() (total, free uint64, err error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return vm.Total, vm.Free, nil
}

// JobQueue is a thread-safe FIFO with completion tracking. The queue is
// finished once input is marked complete, every enqueued job has been
// processed and none is in progress.
type JobQueue struct {
	mu            sync.Mutex
	jobs          []*Job
	enqueued      int
	processed     int
	inProgress    int
	inputComplete bool
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{}
}

// Enqueue appends a job. Jobs carrying an in-memory payload are gated on
// available memory: a payload at least as large as total system memory
// fails immediately, and one at least half of currently free memory
// blocks with back-off polling until it fits or the wait times out. The
// gate keeps one huge decompressed payload from exhausting RAM while it
// waits behind other work.
func (q *JobQueue) Enqueue(job *Job) error {
	if err := q.waitForMemory(job); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	q.enqueued++
	return nil
}

// Dequeue pops the oldest job. The second return is false when the queue
// is currently empty; the caller polls rather than blocks.
func (q *JobQueue) Dequeue() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	q.inProgress++
	return job, true
}

// CompleteJob records that a dequeued job finished processing.
func (q *JobQueue) CompleteJob() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inProgress--
	q.processed++
	if q.inProgress < 0 {
		panic("queue: in-progress count underflow")
	}
}

// MarkInputComplete signals that the traversal seed will add no further
// top-level jobs. Children extracted from containers may still arrive.
func (q *JobQueue) MarkInputComplete() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inputComplete = true
}

// IsFinished reports whether all work is done and no more is expected.
func (q *JobQueue) IsFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inputComplete && q.enqueued == q.processed && q.inProgress == 0
}

// HasJobs reports whether a Dequeue would currently succeed.
func (q *JobQueue) HasJobs() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) > 0
}

// Enqueued returns the total number of jobs accepted so far.
func (q *JobQueue) Enqueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueued
}

// Processed returns the total number of completed jobs.
func (q *JobQueue) Processed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processed
}

func (q *JobQueue) waitForMemory(job *Job) error {
	if job.Payload == nil {
		return nil
	}
	size := uint64(len(job.Payload))

	total, free, err := virtualMemory()
	if err != nil {
		return fmt.Errorf("failed to read memory stats: %w", err)
	}
	if size >= total {
		return fmt.Errorf("insufficient memory to process job: %s", job.AbsPath())
	}

	// Leave a buffer of free memory.
	waited := time.Duration(0)
	for size >= free/2 {
		if waited >= memoryWaitTimeout {
			return fmt.Errorf("insufficient memory to process job: %s", job.AbsPath())
		}
		time.Sleep(memoryPollInterval)
		waited += memoryPollInterval
		if _, free, err = virtualMemory(); err != nil {
			return fmt.Errorf("failed to read memory stats: %w", err)
		}
	}
	return nil
}
