package convert

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/overlay-export/internal/logging"
	"github.com/mmr-tortoise/overlay-export/internal/model"
)

func TestActionLine(t *testing.T) {
	tests := []struct {
		name string
		area model.ExportArea
		want string
	}{
		{
			"drawing",
			model.AreaDrawing,
			"file-open: /w/a-fig1.svg; export-area-drawing; export-filename: /out/a-fig1.pdf; export-do; file-close\n",
		},
		{
			"page",
			model.AreaPage,
			"file-open: /w/a-fig1.svg; export-filename: /out/a-fig1.pdf; export-do; file-close\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := ActionLine(tt.area, "/w/a-fig1.svg", "/out/a-fig1.pdf")
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestActionLine_RejectsSeparators(t *testing.T) {
	for _, p := range []string{"/w/a;b.svg", "/w/a\nb.svg"} {
		_, err := ActionLine(model.AreaDrawing, p, "/out/x.pdf")
		assert.Error(t, err, p)
	}
}

func TestOneShot_Args(t *testing.T) {
	c := NewOneShot("inkscape", model.AreaDrawing, logging.Discard())
	assert.Equal(t,
		[]string{"a.svg", "--export-area-drawing", "--export-filename", "a.pdf"},
		c.Args("a.svg", "a.pdf"))
	assert.True(t, c.Concurrent())
}

func TestOneShot_Convert(t *testing.T) {
	fake := installFakeInkscape(t)
	dir := t.TempDir()
	svg := writeSVG(t, dir, "slides-fig1.svg")
	out := filepath.Join(dir, "slides-fig1.pdf")

	c := NewOneShot(fake, model.AreaDrawing, logging.Discard())
	require.NoError(t, c.Convert(context.Background(), svg, out))
	assert.FileExists(t, out)

	err := c.Convert(context.Background(), filepath.Join(dir, "missing.svg"), out)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConversionFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "Can't open file")
}

// TestShell_Session queues several files on one session and checks that
// every output exists once Close has returned.
func TestShell_Session(t *testing.T) {
	fake := installFakeInkscape(t)
	dir := t.TempDir()

	s, err := StartShell(context.Background(), fake, model.AreaDrawing, logging.Discard())
	require.NoError(t, err)
	assert.False(t, s.Concurrent())

	var outs []string
	for _, name := range []string{"a-fig1", "a-fig2", "a-fig3"} {
		svg := writeSVG(t, dir, name+".svg")
		out := filepath.Join(dir, name+".pdf")
		require.NoError(t, s.Convert(context.Background(), svg, out))
		outs = append(outs, out)
	}

	require.NoError(t, s.Close())
	for _, out := range outs {
		assert.FileExists(t, out)
	}

	// Close is idempotent and the session refuses further work.
	assert.NoError(t, s.Close())
	err = s.Convert(context.Background(), writeSVG(t, dir, "late.svg"), filepath.Join(dir, "late.pdf"))
	assert.Error(t, err)
}

// TestShell_ExitStatus verifies that a non-zero final status of the
// session becomes the error code.
func TestShell_ExitStatus(t *testing.T) {
	fake := installFakeInkscape(t)
	t.Setenv("FAKE_INKSCAPE_QUIT_STATUS", "9")

	s, err := StartShell(context.Background(), fake, model.AreaPage, logging.Discard())
	require.NoError(t, err)

	err = s.Close()
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCode(9), cliErr.Code)
}

// TestOpen_Shell checks the default mode starts a shell session.
func TestOpen_Shell(t *testing.T) {
	fake := installFakeInkscape(t)

	conv, err := Open(context.Background(), Options{Binary: fake, Area: model.AreaDrawing})
	require.NoError(t, err)
	assert.IsType(t, &Shell{}, conv)
	assert.NoError(t, conv.Close())
}

// TestInkscape_RealBinary runs a conversion with an installed Inkscape, and
// is skipped when none is available.
func TestInkscape_RealBinary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Inkscape test in short mode")
	}
	if _, err := LookupInkscape(""); err != nil {
		t.Skip("inkscape not installed")
	}

	dir := t.TempDir()
	svg := writeSVG(t, dir, "real.svg")
	out := filepath.Join(dir, "real.pdf")

	conv, err := Open(context.Background(), Options{Mode: model.ModeOneShot, Area: model.AreaPage})
	if err != nil {
		t.Skipf("inkscape unusable: %v", err)
	}
	require.NoError(t, conv.Convert(context.Background(), svg, out))
	require.NoError(t, conv.Close())
	assert.FileExists(t, out)
}
