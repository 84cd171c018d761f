package session

import (
	"context"
	"time"
)

// UpMarker prefixes the runtime status text of a running container.
const UpMarker = "Up"

// ContainerStatus is one row of a runtime listing.
type ContainerStatus struct {
	Name   string
	Status string
}

// PortBinding maps a container port to the host.
type PortBinding struct {
	PrivatePort uint16
	PublicPort  uint16
}

// Mount is a storage mapping reported by container inspection.
type Mount struct {
	Type        string
	Source      string
	Destination string
}

// Event is one entry of the runtime event feed.
type Event struct {
	Action string
	Name   string
}

// Runtime is the container engine as seen by the session layer.
// internal/docker provides the production implementation.
type Runtime interface {
	ListAll(ctx context.Context, prefix string) ([]ContainerStatus, error)
	ListRunning(ctx context.Context, name string) ([]PortBinding, error)
	InspectMounts(ctx context.Context, name string) ([]Mount, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string, grace time.Duration) error
	Remove(ctx context.Context, name string) error
	ExecDetached(ctx context.Context, name string, env []string, cmd []string) error
	Events(ctx context.Context, prefix string) (<-chan Event, <-chan error)
}
