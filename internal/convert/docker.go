package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/mmr-tortoise/overlay-export/internal/docker"
	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// DefaultImage is the Inkscape image used by the docker converter.
const DefaultImage = "minidocks/inkscape:1"

// Mount points of the input and output directories inside the container.
const (
	containerInputDir  = "/overlay-export/in"
	containerOutputDir = "/overlay-export/out"
)

// Docker converts each file in its own container. The input directory is
// mounted read-only and the output directory read-write; the process runs
// as the invoking user so the outputs are owned by them.
type Docker struct {
	client *docker.Client
	image  string
	area   model.ExportArea
	user   string
	logger *slog.Logger
	now    func() time.Time
}

// NewDocker creates a Docker converter. It takes ownership of client, which
// Close releases.
func NewDocker(client *docker.Client, image string, area model.ExportArea, logger *slog.Logger) *Docker {
	return &Docker{
		client: client,
		image:  image,
		area:   area,
		user:   currentUser(),
		logger: logger,
		now:    time.Now,
	}
}

// currentUser returns "uid:gid" of the process, or "" where the notion does
// not apply.
func currentUser() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	return fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
}

// RunSpec builds the container that converts svgPath to outPath. step is
// only recorded in the container labels.
func (c *Docker) RunSpec(step int, svgPath, outPath string) (docker.RunSpec, error) {
	svgAbs, err := filepath.Abs(svgPath)
	if err != nil {
		return docker.RunSpec{}, err
	}
	outAbs, err := filepath.Abs(outPath)
	if err != nil {
		return docker.RunSpec{}, err
	}

	in := containerInputDir + "/" + filepath.Base(svgAbs)
	out := containerOutputDir + "/" + filepath.Base(outAbs)

	return docker.RunSpec{
		Image:      c.image,
		Entrypoint: []string{DefaultBinary},
		Cmd:        exportArgs(c.area, in, out),
		Mounts: []docker.Mount{
			{Source: filepath.Dir(svgAbs), Target: containerInputDir, ReadOnly: true},
			{Source: filepath.Dir(outAbs), Target: containerOutputDir},
		},
		User: c.user,
		Labels: docker.BuildLabels(docker.Job{
			Input:     svgAbs,
			Output:    outAbs,
			Step:      step,
			CreatedAt: c.now(),
		}),
	}, nil
}

// Convert runs one container and waits for it.
func (c *Docker) Convert(ctx context.Context, svgPath, outPath string) error {
	spec, err := c.RunSpec(stepFromContext(ctx), svgPath, outPath)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "cannot resolve conversion paths", err)
	}

	c.logger.Debug("running inkscape container", "image", c.image, "input", svgPath, "output", outPath)
	result, err := docker.RunContainer(ctx, c.client, spec)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		message := fmt.Sprintf("inkscape container exited with status %d converting %s", result.ExitCode, svgPath)
		if s := strings.TrimSpace(result.Stderr); s != "" {
			message = fmt.Sprintf("%s: %s", message, s)
		}
		return model.NewCLIError(model.ExitConversionFailed, message)
	}
	return nil
}

// ProbeVersion runs `inkscape --version` inside the image.
func (c *Docker) ProbeVersion(ctx context.Context) (*version.Version, error) {
	result, err := docker.RunContainer(ctx, c.client, docker.RunSpec{
		Image:      c.image,
		Entrypoint: []string{DefaultBinary},
		Cmd:        []string{"--version"},
		User:       c.user,
		Labels: docker.BuildLabels(docker.Job{
			Input:     c.image,
			Output:    "-",
			CreatedAt: c.now(),
		}),
	})
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, model.NewCLIError(
			model.ExitToolNotFound,
			fmt.Sprintf("image %s does not provide a working %s: %s", c.image, DefaultBinary, strings.TrimSpace(result.Stderr)),
		)
	}
	v, err := ParseVersion(result.Stdout)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitToolVersion, "cannot determine the Inkscape version of image "+c.image, err)
	}
	return v, nil
}

// Close releases the Docker client.
func (c *Docker) Close() error {
	return c.client.Close()
}

// Concurrent reports true; every conversion has its own container.
func (c *Docker) Concurrent() bool {
	return true
}
