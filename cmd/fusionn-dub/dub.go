package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fusionn-dub/internal/cleanup"
	"github.com/fusionn-dub/internal/client/apprise"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/events"
	"github.com/fusionn-dub/internal/executor"
	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/internal/queue"
	"github.com/fusionn-dub/internal/service/processor"
	"github.com/fusionn-dub/pkg/logger"
)

type dubOptions struct {
	language string
	output   string
	notify   bool
}

func newDubCommand(root *rootOptions) *cobra.Command {
	opts := &dubOptions{}

	cmd := &cobra.Command{
		Use:   "dub <video>",
		Short: "Dub one video in-process and print progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDub(cmd.Context(), cmd.OutOrStdout(), root.configPath, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.language, "lang", "l", domain.DefaultTargetLanguage, "Target language (BCP 47)")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "Write the dubbed video here (default <video>.dubbed.mp4)")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "Send Apprise notifications as configured")
	return cmd
}

func runDub(ctx context.Context, out io.Writer, configPath, video string, opts *dubOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	initLogger()
	defer logger.Sync()

	src, err := filepath.Abs(video)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if !fileops.Exists(src) {
		return fmt.Errorf("file does not exist: %s", src)
	}
	if !fileops.IsMediaFile(src) {
		return fmt.Errorf("unsupported file extension %q", filepath.Ext(src))
	}
	lang, err := domain.NormalizeLanguage(opts.language)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := ensureDirectories(cfg.Folders); err != nil {
		return fmt.Errorf("directory setup: %w", err)
	}

	jobID := uuid.New().String()
	upload := filepath.Join(cfg.Folders.Uploads, jobID+"-"+fileops.SanitizeFileName(src))
	if err := fileops.HardlinkOrCopy(src, upload); err != nil {
		return fmt.Errorf("stage source: %w", err)
	}

	// Transient artifacts go as soon as this run ends.
	scheduler := cleanup.NewScheduler(nil)
	defer scheduler.Stop()
	defer scheduler.RunNow(jobID)

	var notifier *apprise.Client
	if opts.notify {
		notifier = apprise.NewClient(cfg.Apprise)
	}

	settings := processor.SettingsFromConfig(cfg)
	runner := executor.ExecRunner{Echo: isDev()}
	proc := processor.New(processor.EnginesFromConfig(cfg, runner), settings, scheduler, progressPrinter(out), notifier)

	job := queue.NewJob(jobID, upload, filepath.Base(src), lang)
	fmt.Fprintf(out, "🎬 %s → %s (%s, job %s)\n", job.FileName, domain.LanguageName(lang), fileops.HumanSize(src), jobID)
	if err := proc.Process(ctx, job); err != nil {
		return err
	}

	dst := opts.output
	if dst == "" {
		dst = fileops.ChangeExtension(src, ".dubbed.mp4")
	}
	result := job.OutputPath()
	if err := fileops.HardlinkOrCopy(result, dst); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if dst != result {
		_ = os.Remove(result)
	}
	fmt.Fprintf(out, "✅ Dubbed video: %s (%s)\n", dst, fileops.HumanSize(dst))
	return nil
}

// progressPrinter renders pipeline events as one line each.
func progressPrinter(w io.Writer) events.Observer {
	return events.ObserverFunc(func(e events.Event) {
		switch e.Type {
		case events.TypeError:
			fmt.Fprintf(w, "❌ %s\n", e.Message)
		case events.TypeComplete:
			fmt.Fprintf(w, "[%3d%%] %s\n", e.Progress, e.Message)
		default:
			step := strings.ReplaceAll(e.Step, "_", " ")
			fmt.Fprintf(w, "[%3d%%] %-20s %s\n", e.Progress, step, e.Message)
		}
	})
}
