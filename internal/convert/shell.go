package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// Shell action names, see `inkscape --action-list`.
const (
	actionFileOpen          = "file-open"
	actionExportAreaDrawing = "export-area-drawing"
	actionExportFilename    = "export-filename"
	actionExportDo          = "export-do"
	actionFileClose         = "file-close"
	commandQuit             = "quit"
)

// ActionLine builds the shell command that converts svgPath to outPath.
// Actions are separated by ';' and the line by '\n', so paths containing
// either cannot be expressed and are rejected.
func ActionLine(area model.ExportArea, svgPath, outPath string) (string, error) {
	for _, p := range []string{svgPath, outPath} {
		if strings.ContainsAny(p, ";\r\n") {
			return "", fmt.Errorf("path %q cannot be passed to an inkscape shell; use --mode oneshot", p)
		}
	}

	actions := []string{actionFileOpen + ": " + svgPath}
	if area != model.AreaPage {
		actions = append(actions, actionExportAreaDrawing)
	}
	actions = append(actions,
		actionExportFilename+": "+outPath,
		actionExportDo,
		actionFileClose,
	)
	return strings.Join(actions, "; ") + "\n", nil
}

// Shell drives a single `inkscape --shell` session. Action lines are queued
// on the session's stdin; Inkscape processes them in order and the outputs
// only exist for sure once Close has returned.
type Shell struct {
	area   model.ExportArea
	logger *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *lineLogger
	stderr bytes.Buffer

	// done is closed when the process has exited; waitErr is then final.
	done    chan struct{}
	waitErr error

	mu     sync.Mutex
	queued int
	closed bool
}

// StartShell launches `binary --shell`. The session is killed if ctx is
// cancelled before Close.
func StartShell(ctx context.Context, binary string, area model.ExportArea, logger *slog.Logger) (*Shell, error) {
	s := &Shell{
		area:   area,
		logger: logger,
		stdout: newLineLogger(logger, "inkscape"),
		done:   make(chan struct{}),
	}

	// #nosec G204 -- binary comes from PATH lookup or the user's own config
	s.cmd = exec.CommandContext(ctx, binary, "--shell")
	s.cmd.Stdout = s.stdout
	s.cmd.Stderr = io.MultiWriter(&s.stderr, newLineLogger(logger, "inkscape stderr"))

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to open inkscape shell input", err)
	}
	s.stdin = stdin

	if err := s.cmd.Start(); err != nil {
		return nil, model.WrapCLIError(model.ExitToolNotFound, fmt.Sprintf("failed to start %s --shell", binary), err)
	}
	logger.Debug("inkscape shell started", "pid", s.cmd.Process.Pid)

	go func() {
		s.waitErr = s.cmd.Wait()
		s.stdout.Flush()
		close(s.done)
	}()

	return s, nil
}

// Convert queues the conversion of svgPath to outPath. It fails when the
// session has already exited.
func (s *Shell) Convert(ctx context.Context, svgPath, outPath string) error {
	line, err := ActionLine(s.area, svgPath, outPath)
	if err != nil {
		return model.WrapCLIError(model.ExitConversionFailed, "cannot queue conversion", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.NewCLIError(model.ExitConversionFailed, "inkscape shell session is closed")
	}
	select {
	case <-s.done:
		return s.exitError("inkscape shell exited before all files were queued")
	default:
	}

	s.logger.Debug("queueing conversion", "input", svgPath, "output", outPath)
	if _, err := io.WriteString(s.stdin, line); err != nil {
		return model.WrapCLIError(model.ExitConversionFailed, "failed to write to inkscape shell", err)
	}
	s.queued++
	return nil
}

// Close sends quit, waits for Inkscape to finish every queued conversion
// and returns its final status. A non-zero status is returned as a
// model.CLIError whose code is that status. Close is idempotent.
func (s *Shell) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	// A write error here means the process is already gone; Wait reports why.
	_, _ = io.WriteString(s.stdin, commandQuit+"\n")
	_ = s.stdin.Close()
	queued := s.queued
	s.mu.Unlock()

	<-s.done
	s.logger.Debug("inkscape shell exited", "conversions", queued)
	if s.waitErr == nil {
		return nil
	}
	return s.exitError("inkscape shell failed")
}

// Concurrent reports false; a session processes its queue in order.
func (s *Shell) Concurrent() bool {
	return false
}

// exitError describes how the session ended. Must be called after done is
// closed.
func (s *Shell) exitError(message string) error {
	if stderr := strings.TrimSpace(s.stderr.String()); stderr != "" {
		message = fmt.Sprintf("%s: %s", message, stderr)
	}

	var exitErr *exec.ExitError
	if errors.As(s.waitErr, &exitErr) && exitErr.ExitCode() > 0 {
		return model.WrapCLIError(model.ExitCode(exitErr.ExitCode()), message, s.waitErr)
	}
	if s.waitErr == nil {
		return model.NewCLIError(model.ExitConversionFailed, message)
	}
	return model.WrapCLIError(model.ExitConversionFailed, message, s.waitErr)
}
