package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeInkscape answers --version, runs --shell action lines and one-shot
// exports by creating empty output files. With FAKE_INKSCAPE_NO_OUTPUT set,
// the shell mode acknowledges every line without writing anything.
const fakeInkscape = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "Inkscape ${FAKE_INKSCAPE_VERSION:-1.2.2} (b0a8486541, 2022-12-01)"
  exit 0
fi
if [ "$1" = "--shell" ]; then
  while IFS= read -r line; do
    [ "$line" = "quit" ] && exit 0
    [ -n "$FAKE_INKSCAPE_NO_OUTPUT" ] && continue
    out=$(printf '%s\n' "$line" | sed -n 's/.*export-filename: \([^;]*\);.*/\1/p')
    : > "$out"
  done
  exit 0
fi
for last; do :; done
: > "$last"
`

// slidesSVG has an unmarked background and three steps.
const slidesSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg"
     xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape">
  <g inkscape:label="background" inkscape:groupmode="layer" id="bg"><rect/></g>
  <g inkscape:label="intro-fig[-2]" inkscape:groupmode="layer" id="intro"><text>a</text></g>
  <g inkscape:label="result-fig3" inkscape:groupmode="layer" id="result"><text>b</text></g>
</svg>
`

func installFakeInkscape(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake inkscape is a POSIX shell script")
	}
	path := filepath.Join(t.TempDir(), "inkscape")
	require.NoError(t, os.WriteFile(path, []byte(fakeInkscape), 0o755))
	return path
}

// writeFile creates dir/name with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command with args and returns what it wrote.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// exitCode returns the exit code Execute would use for err.
func exitCode(err error) int {
	code, _, _ := classifyError(err)
	return int(code)
}
