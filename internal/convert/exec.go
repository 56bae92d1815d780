package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// runTool executes binary with args and returns its stdout.
//
// stdout and stderr are captured separately so stderr can be included in the
// error message while stdout is returned on success. Failures are reported
// as a model.CLIError carrying code.
func runTool(ctx context.Context, code model.ExitCode, binary string, args ...string) (string, error) {
	// #nosec G204 -- binary comes from PATH lookup or the user's own config
	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("%s %s failed", binary, strings.Join(args, " "))
		if s := strings.TrimSpace(stderr.String()); s != "" {
			message = fmt.Sprintf("%s: %s", message, s)
		}
		return "", model.WrapCLIError(code, message, err)
	}

	return stdout.String(), nil
}

// lineLogger is an io.Writer that logs every complete line written to it at
// debug level. It forwards the chatter of a long-running process to the
// verbose log without holding it in memory.
type lineLogger struct {
	mu      sync.Mutex
	logger  *slog.Logger
	source  string
	partial []byte
}

func newLineLogger(logger *slog.Logger, source string) *lineLogger {
	return &lineLogger{logger: logger, source: source}
}

// Write implements io.Writer.
func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.emit(w.partial[:i])
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

// Flush logs any trailing text not terminated by a newline.
func (w *lineLogger) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.emit(w.partial)
	w.partial = nil
}

func (w *lineLogger) emit(line []byte) {
	text := strings.TrimSpace(string(line))
	if text == "" {
		return
	}
	w.logger.Debug(text, "source", w.source)
}
