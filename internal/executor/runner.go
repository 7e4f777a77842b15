package executor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/fusionn-dub/pkg/logger"
)

const (
	dimStart = "\033[2m"
	dimEnd   = "\033[0m"
)

// Result is the captured output of a finished command.
type Result struct {
	Stdout string
	Stderr string
}

// Runner runs an external command to completion. Media code depends on this
// instead of os/exec so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec. When Echo is set, output is
// streamed dimmed to stderr while it is captured.
type ExecRunner struct {
	Echo bool
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger.Debugf("  Command: %s %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", name, err)
	}

	wg.Add(2)
	if r.Echo {
		go StreamDimmed(&wg, stdoutPipe, &stdoutBuf)
		go StreamDimmed(&wg, stderrPipe, &stderrBuf)
	} else {
		go capture(&wg, stdoutPipe, &stdoutBuf)
		go capture(&wg, stderrPipe, &stderrBuf)
	}

	wg.Wait()

	res := Result{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if err := cmd.Wait(); err != nil {
		return res, fmt.Errorf("%s: %w\nStderr: %s", name, err, tail(res.Stderr, 20))
	}
	return res, nil
}

// StreamDimmed reads from r, writes to buf for capture, and prints dimmed to stderr.
// This creates a Docker-build-like experience where ffmpeg output is visible but greyed out.
func StreamDimmed(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	// Increase buffer for potentially long lines
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		fmt.Fprintf(os.Stderr, "%s  │ %s%s\n", dimStart, line, dimEnd)
	}

	if err := scanner.Err(); err != nil {
		logger.Debugf("Scanner error (may be normal): %v", err)
	}
}

func capture(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer) {
	defer wg.Done()
	_, _ = io.Copy(buf, r)
}

// tail keeps the last n lines of s; ffmpeg puts the useful part at the end.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
