package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// pingTimeout bounds the daemon check done before the first conversion.
const pingTimeout = 5 * time.Second

// windowsEngine is the named pipe of Docker Desktop on Windows.
const windowsEngine = "npipe:////./pipe/docker_engine"

// Client is the Docker Engine connection used to run Inkscape converter
// containers and to list or remove them in clean.
type Client struct {
	api *client.Client
}

// NewClient connects to the daemon named by DOCKER_HOST (honouring the
// other DOCKER_* variables), or else to the first local engine socket
// that exists. The daemon is not contacted until Ping.
func NewClient() (*Client, error) {
	if os.Getenv(client.EnvOverrideHost) != "" {
		return connect(client.FromEnv)
	}

	home, _ := os.UserHomeDir()
	host, err := selectHost(hostCandidates(runtime.GOOS, home), socketExists)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			"no Docker engine found for the docker conversion mode; start Docker or set DOCKER_HOST", err)
	}
	return connect(client.WithHost(host))
}

func connect(opt client.Opt) (*Client, error) {
	api, err := client.NewClientWithOpts(opt, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "cannot configure the Docker client", err)
	}
	return &Client{api: api}, nil
}

// hostCandidates lists the engine endpoints tried on goos, most preferred
// first. home may be empty.
func hostCandidates(goos, home string) []string {
	switch goos {
	case "windows":
		return []string{windowsEngine}
	case "darwin":
		hosts := []string{"unix:///var/run/docker.sock"}
		if home != "" {
			hosts = append(hosts, "unix://"+filepath.Join(home, ".docker", "run", "docker.sock"))
		}
		return hosts
	default:
		hosts := []string{"unix:///var/run/docker.sock"}
		if home != "" {
			// Rootless engines and Docker Desktop for Linux.
			hosts = append(hosts, "unix://"+filepath.Join(home, ".docker", "desktop", "docker.sock"))
		}
		return hosts
	}
}

// selectHost returns the first candidate whose endpoint exists. Named pipes
// cannot be checked up front and are accepted as they are.
func selectHost(candidates []string, exists func(path string) bool) (string, error) {
	for _, host := range candidates {
		path, ok := strings.CutPrefix(host, "unix://")
		if !ok || exists(path) {
			return host, nil
		}
	}
	return "", fmt.Errorf("no engine socket among %s", strings.Join(candidates, ", "))
}

func socketExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeSocket != 0
}

// Ping checks that the daemon answers and can run the Linux Inkscape image.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ping, err := c.api.Ping(ctx)
	if err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("Docker engine at %s is not answering; is Docker running?", c.api.DaemonHost()), err)
	}
	return checkEngineOS(ping.OSType)
}

// checkEngineOS rejects engines that run Windows containers. Older daemons
// do not report an OS type.
func checkEngineOS(osType string) error {
	if osType == "" || osType == "linux" {
		return nil
	}
	return model.NewCLIError(model.ExitDockerNotRunning,
		fmt.Sprintf("Docker engine runs %s containers; the Inkscape image needs Linux containers", osType))
}

// Close releases the connection. It may be called more than once.
func (c *Client) Close() error {
	if c.api == nil {
		return nil
	}
	return c.api.Close()
}

// API returns the Engine SDK client for container operations.
func (c *Client) API() *client.Client {
	return c.api
}
