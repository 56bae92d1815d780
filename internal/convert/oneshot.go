package convert

import (
	"context"
	"log/slog"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// OneShot converts each file with its own Inkscape process. It is slower
// than a shell session but reports failures per file, and independent
// processes may run in parallel.
type OneShot struct {
	binary string
	area   model.ExportArea
	logger *slog.Logger
}

// NewOneShot creates a OneShot converter for an already checked binary.
func NewOneShot(binary string, area model.ExportArea, logger *slog.Logger) *OneShot {
	return &OneShot{binary: binary, area: area, logger: logger}
}

// Args returns the Inkscape arguments used to convert svgPath to outPath.
func (c *OneShot) Args(svgPath, outPath string) []string {
	return exportArgs(c.area, svgPath, outPath)
}

// Convert runs Inkscape once and waits for it to exit.
func (c *OneShot) Convert(ctx context.Context, svgPath, outPath string) error {
	c.logger.Debug("running inkscape", "input", svgPath, "output", outPath)
	_, err := runTool(ctx, model.ExitConversionFailed, c.binary, c.Args(svgPath, outPath)...)
	return err
}

// Close is a no-op: every conversion is complete when Convert returns.
func (c *OneShot) Close() error {
	return nil
}

// Concurrent reports true; processes do not share state.
func (c *OneShot) Concurrent() bool {
	return true
}
