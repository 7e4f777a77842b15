// Package events carries job progress from the pipeline to any number of
// observers: websocket clients, the CLI, tests.
package events

import (
	"sync"
	"time"

	"github.com/fusionn-dub/pkg/logger"
)

// Type names the three event kinds on the progress stream.
type Type string

const (
	TypeProgress Type = "progress"
	TypeComplete Type = "complete"
	TypeError    Type = "error"
)

// Event is one message on the progress stream.
type Event struct {
	Type        Type      `json:"type"`
	JobID       string    `json:"jobId"`
	Step        string    `json:"step,omitempty"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Time        time.Time `json:"time"`
}

// Observer receives events. Implementations must not block.
type Observer interface {
	OnProgress(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnProgress(e Event) { f(e) }

// Multi fans an event out to several observers in order.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(e Event) {
		for _, o := range observers {
			if o != nil {
				o.OnProgress(e)
			}
		}
	})
}

// Hub broadcasts events to subscriptions keyed by job ID. A subscription
// with an empty job ID receives every job's events.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// Subscription is a buffered stream of events. Slow readers lose events
// rather than stalling the pipeline.
type Subscription struct {
	C <-chan Event

	ch    chan Event
	jobID string
	hub   *Hub
	once  sync.Once
}

// NewHub creates a Hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe registers interest in jobID ("" for all jobs).
func (h *Hub) Subscribe(jobID string) *Subscription {
	ch := make(chan Event, h.buffer)
	s := &Subscription{C: ch, ch: ch, jobID: jobID, hub: h}

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*Subscription]struct{})
	}
	h.subs[jobID][s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs[s.jobID], s)
		if len(h.subs[s.jobID]) == 0 {
			delete(h.subs, s.jobID)
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// OnProgress implements Observer.
func (h *Hub) OnProgress(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, key := range []string{e.JobID, ""} {
		for s := range h.subs[key] {
			select {
			case s.ch <- e:
			default:
				logger.Debugf("📡 Dropped %s event for slow subscriber (job %s)", e.Type, e.JobID)
			}
		}
		if e.JobID == "" {
			break
		}
	}
}

// Subscribers returns the number of live subscriptions for jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}
