package convert

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeInkscape mimics the parts of the Inkscape CLI the converters use:
// --version, --shell with action lines and one-shot exports. Exports create
// an empty output file; a missing input fails like Inkscape does.
// FAKE_INKSCAPE_VERSION and FAKE_INKSCAPE_QUIT_STATUS tune its behavior.
const fakeInkscape = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "Inkscape ${FAKE_INKSCAPE_VERSION:-1.2.2} (b0a8486541, 2022-12-01)"
  exit 0
fi
if [ "$1" = "--shell" ]; then
  echo "Inkscape interactive shell mode."
  while IFS= read -r line; do
    if [ "$line" = "quit" ]; then
      exit "${FAKE_INKSCAPE_QUIT_STATUS:-0}"
    fi
    in=$(printf '%s\n' "$line" | sed -n 's/^file-open: \([^;]*\);.*/\1/p')
    out=$(printf '%s\n' "$line" | sed -n 's/.*export-filename: \([^;]*\);.*/\1/p')
    if [ ! -f "$in" ]; then
      echo "Can't open file: $in" >&2
      continue
    fi
    : > "$out"
  done
  exit 0
fi
for last; do :; done
if [ ! -f "$1" ]; then
  echo "Can't open file: $1" >&2
  exit 1
fi
: > "$last"
`

// installFakeInkscape writes the fake tool into a temporary directory and
// returns its path. Tests using it are skipped on Windows.
func installFakeInkscape(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake inkscape is a POSIX shell script")
	}
	path := filepath.Join(t.TempDir(), "inkscape")
	require.NoError(t, os.WriteFile(path, []byte(fakeInkscape), 0o755))
	return path
}

// writeSVG creates a minimal SVG file in dir and returns its path.
func writeSVG(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), 0o644))
	return path
}
