package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/pkg/logger"
)

// ErrFull is returned by Enqueue when the backlog is at capacity.
var ErrFull = errors.New("job queue is full")

// Processor runs one job to a terminal state.
type Processor interface {
	Process(ctx context.Context, job *Job) error
}

// Stats counts jobs by outcome.
type Stats struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Queue runs jobs one at a time in submission order. Failed is terminal:
// jobs are never retried.
type Queue struct {
	mu       sync.RWMutex
	jobs     []*Job
	jobMap   map[string]*Job // For quick lookup by ID
	jobsChan chan *Job

	processor Processor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue with room for backlog waiting jobs.
func New(processor Processor, backlog int) *Queue {
	if backlog <= 0 {
		backlog = 100
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		jobs:      make([]*Job, 0),
		jobMap:    make(map[string]*Job),
		jobsChan:  make(chan *Job, backlog),
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the worker goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
	logger.Info("📥 Job queue started (sequential processing)")
}

// Stop cancels the running job and waits for the worker to exit.
func (q *Queue) Stop() {
	logger.Info("🛑 Stopping job queue...")
	q.cancel()
	q.wg.Wait()
	logger.Info("✅ Job queue stopped")
}

// Enqueue registers job and hands it to the worker.
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case q.jobsChan <- job:
	default:
		return ErrFull
	}
	q.jobs = append(q.jobs, job)
	q.jobMap[job.ID] = job

	logger.Infof("📥 Job queued: %s (%s → %s)", job.ID, job.FileName, job.TargetLanguage)
	return nil
}

// Get returns a job by ID, or nil.
func (q *Queue) Get(id string) *Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.jobMap[id]
}

// All returns snapshots of every known job in submission order.
func (q *Queue) All() []Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]Snapshot, 0, len(q.jobs))
	for _, job := range q.jobs {
		result = append(result, job.Snapshot())
	}
	return result
}

// Forget drops a job's in-memory record. The cleanup scheduler calls it once
// the retention window has passed.
func (q *Queue) Forget(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobMap[id]; !ok {
		return
	}
	delete(q.jobMap, id)
	for i, job := range q.jobs {
		if job.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			break
		}
	}
}

// Stats returns queue statistics.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	s := Stats{Total: len(q.jobs)}
	for _, job := range q.jobs {
		switch st := job.State(); {
		case st == domain.StateQueued:
			s.Queued++
		case st == domain.StateCompleted:
			s.Completed++
		case st == domain.StateFailed:
			s.Failed++
		default:
			s.Processing++
		}
	}
	return s
}

// worker processes jobs sequentially.
func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobsChan:
			q.processJob(job)
		}
	}
}

func (q *Queue) processJob(job *Job) {
	logger.Infof("🔄 Processing job: %s (%s)", job.ID, job.FileName)

	err := q.processor.Process(q.ctx, job)

	// The processor owns state transitions; this only guards against one that
	// returned without reaching a terminal state.
	if !job.State().Terminal() {
		if err == nil {
			err = errors.New("processor returned before completion")
		}
		job.Fail(err)
	}

	if err != nil {
		logger.Errorf("❌ Job %s failed: %v", job.ID, err)
		return
	}
	logger.Infof("✅ Job completed: %s", job.ID)
}
