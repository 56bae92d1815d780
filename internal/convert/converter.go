package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmr-tortoise/overlay-export/internal/docker"
	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// Converter turns one SVG file into one output file.
type Converter interface {
	// Convert converts svgPath into outPath. Depending on the converter the
	// output may only be complete once Close returns.
	Convert(ctx context.Context, svgPath, outPath string) error

	// Close releases the converter. For a shell session it waits for
	// Inkscape to finish every queued conversion and reports its final
	// status.
	Close() error

	// Concurrent reports whether Convert may be called from several
	// goroutines at once.
	Concurrent() bool
}

// Options configures Open.
type Options struct {
	// Mode selects the converter implementation.
	Mode model.ConverterMode

	// Binary is the Inkscape executable; DefaultBinary when empty.
	Binary string

	// Image is the Docker image used in docker mode.
	Image string

	// Area selects the exported area.
	Area model.ExportArea

	// Logger receives progress and Inkscape output; nil discards it.
	Logger *slog.Logger
}

// Open checks that the tool for opts.Mode is available and recent enough,
// then starts the converter. The returned converter must be closed.
func Open(ctx context.Context, opts Options) (Converter, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch opts.Mode {
	case model.ModeShell, model.ModeOneShot, "":
		binary, err := LookupInkscape(opts.Binary)
		if err != nil {
			return nil, err
		}
		v, err := ProbeVersion(ctx, binary)
		if err != nil {
			return nil, err
		}
		if err := CheckVersion(v); err != nil {
			return nil, err
		}
		logger.Debug("found inkscape", "path", binary, "version", v.String())

		if opts.Mode == model.ModeOneShot {
			return NewOneShot(binary, opts.Area, logger), nil
		}
		return StartShell(ctx, binary, opts.Area, logger)

	case model.ModeDocker:
		client, err := docker.NewClient()
		if err != nil {
			return nil, err
		}
		conv, err := openDocker(ctx, client, opts.Image, opts.Area, logger)
		if err != nil {
			client.Close()
			return nil, err
		}
		return conv, nil

	default:
		return nil, model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("unknown converter mode %q", opts.Mode))
	}
}

func openDocker(ctx context.Context, client *docker.Client, image string, area model.ExportArea, logger *slog.Logger) (*Docker, error) {
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	if image == "" {
		image = DefaultImage
	}
	if err := docker.EnsureImage(ctx, client, image); err != nil {
		return nil, err
	}

	conv := NewDocker(client, image, area, logger)
	v, err := conv.ProbeVersion(ctx)
	if err != nil {
		return nil, err
	}
	if err := CheckVersion(v); err != nil {
		return nil, err
	}
	logger.Debug("found inkscape image", "image", image, "version", v.String())
	return conv, nil
}
