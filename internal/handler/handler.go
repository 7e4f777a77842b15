package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/events"
	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/internal/queue"
	"github.com/fusionn-dub/internal/service/processor"
	"github.com/fusionn-dub/internal/version"
	"github.com/fusionn-dub/pkg/logger"
)

// Handler handles HTTP requests.
type Handler struct {
	queue     *queue.Queue
	hub       *events.Hub
	folders   config.FoldersConfig
	upload    config.UploadConfig
	publicURL string
	limiter   *ipLimiter
}

// New creates a new Handler.
func New(q *queue.Queue, hub *events.Hub, cfg *config.Config) *Handler {
	return &Handler{
		queue:     q,
		hub:       hub,
		folders:   cfg.Folders,
		upload:    cfg.Upload,
		publicURL: cfg.Server.PublicURL,
		limiter:   newIPLimiter(cfg.Upload.RateLimit, cfg.Upload.RateWindow),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/health", h.Health)
		api.GET("/version", h.Version)

		// Jobs
		api.POST("/jobs", h.limiter.middleware(), h.SubmitJob)
		api.GET("/jobs", h.ListJobs)
		api.GET("/jobs/:id", h.GetJob)
		api.GET("/queue/stats", h.GetQueueStats)

		// Results
		api.GET("/download/:id", h.Download)

		// Progress stream
		api.GET("/ws", h.Stream)
		api.GET("/ws/:id", h.Stream)
	}
}

// Health returns service health status.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Version returns service version.
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version.Version})
}

// SubmitJob accepts a multipart upload (video, targetLanguage) and queues it.
func (h *Handler) SubmitJob(c *gin.Context) {
	if h.upload.MaxBytes > 0 {
		if c.Request.ContentLength > h.upload.MaxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.upload.MaxBytes)
	}

	file, err := c.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file is required"})
		return
	}
	if !fileops.IsMediaFile(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	lang, err := domain.NormalizeLanguage(c.PostForm("targetLanguage"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := uuid.New().String()
	dst := filepath.Join(h.folders.Uploads, jobID+"-"+fileops.SanitizeFileName(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		logger.Errorf("❌ Failed to store upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	logger.Infof("📤 Upload received: %s (%s) → %s", file.Filename, humanize.Bytes(uint64(file.Size)), lang)

	job := queue.NewJob(jobID, dst, file.Filename, lang)
	if err := h.queue.Enqueue(job); err != nil {
		_ = fileops.Remove(dst)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":   jobID,
		"message": "job queued",
	})
}

// ListJobs returns every known job.
func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.All())
}

// GetQueueStats returns queue statistics.
func (h *Handler) GetQueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Stats())
}

// GetJob returns a specific job by ID.
func (h *Handler) GetJob(c *gin.Context) {
	job := h.queue.Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	snap := job.Snapshot()
	resp := gin.H{"job": snap}
	if snap.State == domain.StateCompleted {
		resp["downloadUrl"] = h.publicURL + processor.DownloadPath(snap.ID)
	}
	c.JSON(http.StatusOK, resp)
}

// Download serves a finished video. Outputs outlive the in-memory job
// record, so an unknown ID still resolves if its file exists.
func (h *Handler) Download(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	path := processor.OutputPath(h.folders, id)
	name := id + "-dubbed.mp4"
	if job := h.queue.Get(id); job != nil {
		if job.OutputPath() == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		path = job.OutputPath()
		name = strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName)) + "-dubbed.mp4"
	}

	if info, err := os.Stat(path); err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.FileAttachment(path, name)
}
