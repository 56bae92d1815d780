// Package docker provides Docker Engine API wrappers used by the docker
// converter mode of overlay-export.
//
// This package handles:
//   - Connecting to the engine from DOCKER_HOST or a local socket, and
//     checking it can run the Linux Inkscape image
//   - Running one short-lived converter container per file: create, start,
//     wait, collect logs, remove
//   - Labels that mark converter containers, so leftovers from interrupted
//     runs can be found and removed by the clean command
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
