package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/fusionn-dub/internal/cleanup"
	"github.com/fusionn-dub/internal/client/apprise"
	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/events"
	"github.com/fusionn-dub/internal/executor"
	"github.com/fusionn-dub/internal/handler"
	"github.com/fusionn-dub/internal/queue"
	"github.com/fusionn-dub/internal/service/processor"
	"github.com/fusionn-dub/internal/version"
	"github.com/fusionn-dub/pkg/logger"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and job queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	initLogger()
	defer logger.Sync()

	version.PrintBanner(nil)

	logger.Infof("📁 Loading config: %s", configPath)
	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer cfgMgr.Stop()
	cfg := cfgMgr.Get()

	if err := ensureDirectories(cfg.Folders); err != nil {
		return fmt.Errorf("directory setup: %w", err)
	}

	appriseClient := apprise.NewClient(cfg.Apprise)
	if appriseClient.Enabled() {
		logger.Infof("🔔 Notifications: enabled (key=%s)", cfg.Apprise.Key)
	} else {
		logger.Info("🔔 Notifications: disabled")
	}

	hub := events.NewHub(64)
	runner := executor.ExecRunner{Echo: isDev()}

	// Job records are dropped together with their transient artifacts.
	var jobQueue *queue.Queue
	scheduler := cleanup.NewScheduler(func(jobID string) { jobQueue.Forget(jobID) })
	defer scheduler.Stop()

	proc := processor.New(
		processor.EnginesFromConfig(cfg, runner),
		processor.SettingsFromConfig(cfg),
		scheduler, hub, appriseClient,
	)
	cfgMgr.OnChange(func(_, cur *config.Config) {
		proc.Reload(processor.EnginesFromConfig(cur, runner), processor.SettingsFromConfig(cur))
		logger.Infof("🔄 Pipeline settings reloaded for subsequent jobs")
	})

	jobQueue = queue.New(proc, 100)
	jobQueue.Start()
	defer jobQueue.Stop()

	if !isDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	h := handler.New(jobQueue, hub, cfg)
	h.RegisterRoutes(router)

	// Uploads, downloads and websocket streams are long-lived, so only the
	// header read is bounded.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	logger.Info("")
	logger.Infof("📂 Data folders:")
	logger.Infof("   %-28s → Uploaded videos", cfg.Folders.Uploads)
	logger.Infof("   %-28s → Per-job artifacts (purged after %s)", cfg.Folders.Temp, cfg.Pipeline.Retention)
	logger.Infof("   %-28s → Dubbed videos", cfg.Folders.Output)
	logger.Info("")
	logger.Infof("🎤 Whisper: %s", cfg.Whisper.Provider)
	logger.Infof("🌐 Translate: %s (model: %s)", cfg.Translate.Provider, cfg.Translate.Model)
	if cfg.Translate.RateLimitRPM > 0 {
		logger.Infof("🚦 Rate limit: %d RPM", cfg.Translate.RateLimitRPM)
	}
	logger.Infof("🗣️ TTS: %s", cfg.TTS.Provider)
	logger.Info("")
	logger.Infof("🌐 API server: http://localhost:%d", cfg.Server.Port)
	logger.Infof("   POST /api/v1/jobs           - Upload a video (video, targetLanguage)")
	logger.Infof("   GET  /api/v1/ws/:id         - Progress stream")
	logger.Infof("   GET  /api/v1/download/:id   - Dubbed video")
	logger.Info("")
	logger.Info("────────────────────────────────────────────────────────────────")
	logger.Info("✅  Ready! Waiting for uploads...")
	logger.Info("────────────────────────────────────────────────────────────────")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}

	logger.Info("")
	logger.Info("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("❌ Shutdown error: %v", err)
	}

	logger.Info("👋 Goodbye!")
	return nil
}

// requestLogger returns a gin middleware for logging HTTP requests
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if path != "/api/v1/health" || status >= 400 {
			latency := time.Since(start)
			logger.Debugf("HTTP %s %s → %d (%v)", c.Request.Method, path, status, latency)
		}
	}
}
