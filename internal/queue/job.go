package queue

import (
	"sync"
	"time"

	"github.com/fusionn-dub/internal/domain"
)

// Job is one dubbing request. It is mutated only by the orchestrator running
// it; readers take a Snapshot.
type Job struct {
	mu sync.RWMutex

	ID             string
	SourcePath     string // Uploaded video
	FileName       string // Client-facing name
	TargetLanguage string

	state       domain.State
	progress    int
	err         string
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time

	outputPath string
}

// Snapshot is an immutable copy of a Job for status reporting.
type Snapshot struct {
	ID             string       `json:"id"`
	FileName       string       `json:"fileName"`
	TargetLanguage string       `json:"targetLanguage"`
	State          domain.State `json:"state"`
	Progress       int          `json:"progress"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	StartedAt      *time.Time   `json:"startedAt,omitempty"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
	OutputPath     string       `json:"-"`
}

// NewJob creates a queued job.
func NewJob(id, sourcePath, fileName, targetLanguage string) *Job {
	return &Job{
		ID:             id,
		SourcePath:     sourcePath,
		FileName:       fileName,
		TargetLanguage: targetLanguage,
		state:          domain.StateQueued,
		progress:       domain.StateQueued.Progress(),
		createdAt:      time.Now(),
	}
}

// Advance moves the job to next and sets the stage's entry progress. It
// reports false (and changes nothing) for a backwards or post-terminal move.
func (j *Job) Advance(next domain.State) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.state.CanTransition(next) || next == domain.StateFailed {
		return false
	}
	if j.startedAt.IsZero() {
		j.startedAt = time.Now()
	}
	j.state = next
	if p := next.Progress(); p > j.progress {
		j.progress = p
	}
	if next == domain.StateCompleted {
		j.completedAt = time.Now()
		j.err = ""
	}
	return true
}

// Fail moves the job to Failed, keeping its last progress.
func (j *Job) Fail(err error) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Terminal() {
		return false
	}
	j.state = domain.StateFailed
	if err != nil {
		j.err = err.Error()
	}
	j.completedAt = time.Now()
	return true
}

func (j *Job) State() domain.State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

func (j *Job) Progress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// SetOutputPath records the muxed video. It is exposed once the job completes.
func (j *Job) SetOutputPath(p string) {
	j.mu.Lock()
	j.outputPath = p
	j.mu.Unlock()
}

// OutputPath is the finished video, set only once the job completed.
func (j *Job) OutputPath() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.state != domain.StateCompleted {
		return ""
	}
	return j.outputPath
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		ID:             j.ID,
		FileName:       j.FileName,
		TargetLanguage: j.TargetLanguage,
		State:          j.state,
		Progress:       j.progress,
		Error:          j.err,
		CreatedAt:      j.createdAt,
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		s.StartedAt = &t
	}
	if !j.completedAt.IsZero() {
		t := j.completedAt
		s.CompletedAt = &t
	}
	if j.state == domain.StateCompleted {
		s.OutputPath = j.outputPath
	}
	return s
}
