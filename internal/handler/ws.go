package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/events"
	"github.com/fusionn-dub/internal/queue"
	"github.com/fusionn-dub/internal/service/processor"
	"github.com/fusionn-dub/pkg/logger"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream upgrades to a websocket and forwards progress events for one job
// (/ws/:id) or for every job (/ws).
func (h *Handler) Stream(c *gin.Context) {
	jobID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("⚠️ Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(jobID)
	defer sub.Close()

	// Late subscribers get the job's current state first.
	if jobID != "" {
		if job := h.queue.Get(jobID); job != nil {
			if err := h.write(conn, h.currentEvent(job.Snapshot())); err != nil {
				return
			}
		}
	}

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if err := h.write(conn, e); err != nil {
				logger.Debugf("📡 Websocket write failed: %v", err)
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, e events.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}

func (h *Handler) currentEvent(s queue.Snapshot) events.Event {
	e := events.Event{
		Type:     events.TypeProgress,
		JobID:    s.ID,
		Step:     s.State.Step(),
		Progress: s.Progress,
		Message:  "current state",
		Time:     time.Now(),
	}
	switch s.State {
	case domain.StateCompleted:
		e.Type = events.TypeComplete
		e.Message = "Dubbing completed"
		e.DownloadURL = h.publicURL + processor.DownloadPath(s.ID)
	case domain.StateFailed:
		e.Type = events.TypeError
		e.Message = s.Error
	}
	return e
}
