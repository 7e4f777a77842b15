package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fusionn-dub/internal/domain"
)

type fakeProcessor struct {
	mu    sync.Mutex
	order []string
	done  chan string
	fn    func(job *Job) error
}

func (p *fakeProcessor) Process(ctx context.Context, job *Job) error {
	p.mu.Lock()
	p.order = append(p.order, job.ID)
	p.mu.Unlock()
	err := p.fn(job)
	p.done <- job.ID
	return err
}

func waitDone(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}
	return ""
}

func TestJobAdvanceIsMonotonic(t *testing.T) {
	job := NewJob("j", "/uploads/j.mp4", "j.mp4", "es")
	if job.State() != domain.StateQueued || job.Progress() != 5 {
		t.Fatalf("unexpected initial state %v %d", job.State(), job.Progress())
	}
	if !job.Advance(domain.StateTranscribing) {
		t.Fatal("forward move should succeed")
	}
	if job.Advance(domain.StateExtractingAudio) {
		t.Fatal("backward move should be rejected")
	}
	if job.Progress() != 30 {
		t.Fatalf("expected progress 30, got %d", job.Progress())
	}
	if job.Advance(domain.StateFailed) {
		t.Fatal("Advance must not be used to fail")
	}
	if !job.Fail(errors.New("boom")) || job.Fail(errors.New("again")) {
		t.Fatal("Fail should succeed exactly once")
	}
	if job.Advance(domain.StateCompleted) {
		t.Fatal("failed is terminal")
	}
	s := job.Snapshot()
	if s.State != domain.StateFailed || s.Error != "boom" || s.Progress != 30 || s.CompletedAt == nil {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

func TestJobOutputOnlyWhenCompleted(t *testing.T) {
	job := NewJob("j", "src", "a.mp4", "fr")
	job.SetOutputPath("/out/j-dubbed.mp4")
	if job.OutputPath() != "" {
		t.Fatal("output must not be exposed before completion")
	}
	job.Advance(domain.StateMuxing)
	job.Advance(domain.StateCompleted)
	if job.OutputPath() != "/out/j-dubbed.mp4" || job.Progress() != 100 {
		t.Fatalf("unexpected completion %q %d", job.OutputPath(), job.Progress())
	}

	b, err := json.Marshal(job.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"state":"completed"`) || strings.Contains(string(b), "dubbed.mp4") {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestQueueProcessesSequentially(t *testing.T) {
	p := &fakeProcessor{done: make(chan string, 3)}
	p.fn = func(job *Job) error {
		if job.ID == "b" {
			job.Fail(errors.New("no audio"))
			return errors.New("no audio")
		}
		job.Advance(domain.StateCompleted)
		return nil
	}
	q := New(p, 10)
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(NewJob(id, id+".mp4", id+".mp4", "es")); err != nil {
			t.Fatal(err)
		}
	}
	q.Start()
	defer q.Stop()

	for range 3 {
		waitDone(t, p.done)
	}
	// Stats are read after the worker has updated state; give it a moment.
	deadline := time.Now().Add(time.Second)
	for q.Stats().Processing > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	p.mu.Lock()
	order := strings.Join(p.order, "")
	p.mu.Unlock()
	if order != "abc" {
		t.Fatalf("expected submission order, got %s", order)
	}
	st := q.Stats()
	if st.Total != 3 || st.Completed != 2 || st.Failed != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if q.Get("b").Snapshot().Error != "no audio" {
		t.Fatal("error should be recorded")
	}
}

func TestQueueFailsJobLeftNonTerminal(t *testing.T) {
	p := &fakeProcessor{done: make(chan string, 1), fn: func(job *Job) error { return nil }}
	q := New(p, 1)
	job := NewJob("x", "x.mp4", "x.mp4", "es")
	if err := q.Enqueue(job); err != nil {
		t.Fatal(err)
	}
	q.Start()
	defer q.Stop()
	waitDone(t, p.done)

	deadline := time.Now().Add(time.Second)
	for job.State() != domain.StateFailed && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if job.State() != domain.StateFailed {
		t.Fatalf("expected failed, got %v", job.State())
	}
}

func TestQueueFullAndForget(t *testing.T) {
	q := New(&fakeProcessor{}, 1)
	if err := q.Enqueue(NewJob("a", "", "a.mp4", "es")); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(NewJob("b", "", "b.mp4", "es")); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if q.Get("b") != nil {
		t.Fatal("rejected job must not be registered")
	}

	q.Forget("a")
	q.Forget("missing")
	if q.Get("a") != nil || len(q.All()) != 0 {
		t.Fatal("forgotten job should be gone")
	}
}
