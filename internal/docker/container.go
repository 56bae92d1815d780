// container.go implements the lifecycle of converter containers: each one
// runs a single Inkscape conversion to completion and is removed right
// after its logs are collected.
//
// Converter containers are identified by the "overlay-export.managed-by"
// label, which lets the clean command remove leftovers from interrupted
// runs without touching unrelated containers on the same host.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// removeTimeout bounds the cleanup of a finished container. Cleanup runs
// even when the conversion context was cancelled.
const removeTimeout = 10 * time.Second

// Mount binds a host directory into a container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// String formats the mount in the "src:dst[:ro]" bind syntax.
func (m Mount) String() string {
	if m.ReadOnly {
		return m.Source + ":" + m.Target + ":ro"
	}
	return m.Source + ":" + m.Target
}

// RunSpec describes a converter container.
type RunSpec struct {
	// Image is the image reference, e.g. "minidocks/inkscape:1".
	Image string

	// Entrypoint overrides the image entrypoint. Empty keeps the image's.
	Entrypoint []string

	// Cmd is the argument list passed to the entrypoint.
	Cmd []string

	// Mounts are bind-mounted host directories.
	Mounts []Mount

	// User is the "uid:gid" the process runs as, so output files belong to
	// the invoking user. Empty keeps the image default.
	User string

	// Labels are set on the container, see BuildLabels.
	Labels map[string]string
}

// RunResult is the outcome of a finished container.
type RunResult struct {
	ExitCode int64
	Stdout   string
	Stderr   string
}

// ContainerInfo summarizes a converter container found on the host.
type ContainerInfo struct {
	ID    string
	Name  string
	Image string
	State string

	// Job is parsed from the container labels; nil when they are
	// incomplete.
	Job *Job
}

// EnsureImage pulls ref unless it is already present locally.
func EnsureImage(ctx context.Context, cli *Client, ref string) error {
	_, err := cli.API().ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !cerrdefs.IsNotFound(err) {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to inspect image %q", ref),
			err,
		)
	}

	rc, err := cli.API().ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitToolNotFound,
			fmt.Sprintf("failed to pull image %q", ref),
			err,
		)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return model.WrapCLIError(
			model.ExitToolNotFound,
			fmt.Sprintf("failed to pull image %q", ref),
			err,
		)
	}
	return nil
}

// RunContainer creates a container from spec, starts it, waits for it to
// exit and returns its exit code and demultiplexed output. The container is
// always removed before RunContainer returns.
//
// A non-zero exit code is not an error; callers decide what it means.
func RunContainer(ctx context.Context, cli *Client, spec RunSpec) (*RunResult, error) {
	binds := make([]string, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		binds = append(binds, m.String())
	}

	created, err := cli.API().ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Entrypoint: spec.Entrypoint,
			Cmd:        spec.Cmd,
			User:       spec.User,
			Labels:     spec.Labels,
		},
		&container.HostConfig{Binds: binds},
		nil, nil, "")
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitConversionFailed,
			fmt.Sprintf("failed to create container from image %q", spec.Image),
			err,
		)
	}
	defer func() {
		rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
		defer cancel()
		_ = RemoveContainer(rmCtx, cli, created.ID, true)
	}()

	if err := cli.API().ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConversionFailed,
			fmt.Sprintf("failed to start container %s", ShortID(created.ID)),
			err,
		)
	}

	statusCh, errCh := cli.API().ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		return nil, model.WrapCLIError(
			model.ExitConversionFailed,
			fmt.Sprintf("failed waiting for container %s", ShortID(created.ID)),
			err,
		)
	case status := <-statusCh:
		if status.Error != nil {
			return nil, model.NewCLIError(
				model.ExitConversionFailed,
				fmt.Sprintf("container %s failed: %s", ShortID(created.ID), status.Error.Message),
			)
		}
		exitCode = status.StatusCode
	}

	stdout, stderr, err := containerLogs(ctx, cli, created.ID)
	if err != nil {
		return nil, err
	}

	return &RunResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr}, nil
}

// containerLogs fetches the full output of a stopped container. Containers
// run without a TTY, so the stream is multiplexed and split by stdcopy.
func containerLogs(ctx context.Context, cli *Client, containerID string) (string, string, error) {
	rc, err := cli.API().ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", model.WrapCLIError(
			model.ExitConversionFailed,
			fmt.Sprintf("failed to read logs of container %s", ShortID(containerID)),
			err,
		)
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return "", "", model.WrapCLIError(
			model.ExitConversionFailed,
			fmt.Sprintf("failed to read logs of container %s", ShortID(containerID)),
			err,
		)
	}
	return stdout.String(), stderr.String(), nil
}

// ListManagedContainers returns every container, running or not, that
// carries the overlay-export management label. Filtering happens on the
// daemon side.
func ListManagedContainers(ctx context.Context, cli *Client) ([]ContainerInfo, error) {
	filterArgs := filters.NewArgs()
	for _, selector := range FilterLabels() {
		filterArgs.Add("label", selector)
	}

	containers, err := cli.API().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}
	return result, nil
}

// containerToInfo maps a Docker API container summary to ContainerInfo.
// Docker reports names with a leading "/", which is stripped.
func containerToInfo(c container.Summary) ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	info := ContainerInfo{
		ID:    c.ID,
		Name:  name,
		Image: c.Image,
		State: string(c.State),
	}
	if job, err := ParseLabels(c.Labels); err == nil {
		info.Job = job
	}
	return info
}

// RemoveContainer removes a container by ID. With force, a running
// container is killed first.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.API().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %s", ShortID(containerID)),
			err,
		)
	}
	return nil
}

// ShortID returns the 12-character form Docker shows in `docker ps`.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
