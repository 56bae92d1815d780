package docker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMount_String(t *testing.T) {
	tests := []struct {
		name  string
		mount Mount
		want  string
	}{
		{"read-write", Mount{Source: "/home/u/out", Target: "/out"}, "/home/u/out:/out"},
		{"read-only", Mount{Source: "/home/u/in", Target: "/in", ReadOnly: true}, "/home/u/in:/in:ro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mount.String())
		})
	}
}

// TestContainerToInfo verifies the mapping from the Docker API summary,
// including the leading "/" on names and label parsing.
func TestContainerToInfo(t *testing.T) {
	labels := BuildLabels(Job{
		Input:     "/w/slides-fig1.svg",
		Output:    "/w/slides-fig1.pdf",
		Step:      1,
		CreatedAt: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	})

	info := containerToInfo(container.Summary{
		ID:     "0123456789abcdef",
		Names:  []string{"/eager_turing"},
		Image:  "minidocks/inkscape:1",
		State:  "exited",
		Labels: labels,
	})

	assert.Equal(t, "0123456789abcdef", info.ID)
	assert.Equal(t, "eager_turing", info.Name)
	assert.Equal(t, "minidocks/inkscape:1", info.Image)
	assert.Equal(t, "exited", info.State)
	require.NotNil(t, info.Job)
	assert.Equal(t, 1, info.Job.Step)
	assert.Equal(t, "/w/slides-fig1.pdf", info.Job.Output)
}

// TestContainerToInfo_IncompleteLabels checks that a container with a
// partial label set is still listed, just without a Job.
func TestContainerToInfo_IncompleteLabels(t *testing.T) {
	info := containerToInfo(container.Summary{
		ID:     "abc",
		Labels: map[string]string{LabelManagedBy: ManagedByValue},
	})

	assert.Equal(t, "", info.Name)
	assert.Nil(t, info.Job)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", ShortID("0123456789abcdef"))
	assert.Equal(t, "abc", ShortID("abc"))
}

// TestRunContainer runs a real container when a Docker daemon is reachable.
// It needs the busybox image and is skipped otherwise.
func TestRunContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Docker test in short mode")
	}
	cli, err := NewClient()
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}
	defer cli.Close()

	ctx := context.Background()
	if err := cli.Ping(ctx); err != nil {
		t.Skipf("Docker not running: %v", err)
	}
	if err := EnsureImage(ctx, cli, "busybox:stable"); err != nil {
		t.Skipf("busybox image not available: %v", err)
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("hello\n"), 0o644))

	result, err := RunContainer(ctx, cli, RunSpec{
		Image:      "busybox:stable",
		Entrypoint: []string{"sh", "-c"},
		Cmd:        []string{"cat /data/in.txt; echo oops >&2; exit 3"},
		Mounts:     []Mount{{Source: dir, Target: "/data", ReadOnly: true}},
		Labels:     BuildLabels(Job{Input: "in.txt", Output: "out.txt", Step: 1, CreatedAt: time.Now()}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, "oops\n", result.Stderr)

	// The container is removed once RunContainer returns.
	left, err := ListManagedContainers(ctx, cli)
	require.NoError(t, err)
	for _, c := range left {
		if c.Job != nil {
			assert.NotEqual(t, "in.txt", c.Job.Input)
		}
	}
}
