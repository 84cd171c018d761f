package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"safeclaw/internal/session"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// APIClient defines the subset of Docker API methods we use.
// This allows for mocking in tests.
type APIClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerExecCreate(ctx context.Context, container string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecStart(ctx context.Context, execID string, config container.ExecStartOptions) error
	Events(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error)
	Close() error
}

// WatchedActions are the container event verbs that change session state.
var WatchedActions = []events.Action{
	events.ActionStart,
	events.ActionStop,
	events.ActionDie,
	events.ActionDestroy,
}

// Client wraps the official Docker client and exposes the runtime operations
// the session layer needs.
type Client struct {
	api APIClient
}

var _ session.Runtime = (*Client)(nil)

// NewClient creates a new Docker client instance.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// Close closes the underlying docker client connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// CheckDaemon verifies that the Docker daemon is running and reachable.
func (c *Client) CheckDaemon(ctx context.Context) error {
	_, err := c.api.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker daemon is not reachable: %w", err)
	}
	return nil
}

// ListAll lists every container, running or not, whose name matches prefix.
func (c *Client) ListAll(ctx context.Context, prefix string) ([]session.ContainerStatus, error) {
	list, err := c.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	out := make([]session.ContainerStatus, 0, len(list))
	for _, ctr := range list {
		out = append(out, session.ContainerStatus{
			Name:   containerName(ctr.Names),
			Status: ctr.Status,
		})
	}
	return out, nil
}

// ListRunning returns the port bindings of the running container with the
// exact given name.
func (c *Client) ListRunning(ctx context.Context, name string) ([]session.PortBinding, error) {
	list, err := c.api.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", "^"+name+"$")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ports for %s: %w", name, err)
	}

	var out []session.PortBinding
	for _, ctr := range list {
		for _, p := range ctr.Ports {
			out = append(out, session.PortBinding{PrivatePort: p.PrivatePort, PublicPort: p.PublicPort})
		}
	}
	return out, nil
}

// InspectMounts returns the mounts of a container.
func (c *Client) InspectMounts(ctx context.Context, name string) ([]session.Mount, error) {
	info, err := c.api.ContainerInspect(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", name, err)
	}

	out := make([]session.Mount, 0, len(info.Mounts))
	for _, m := range info.Mounts {
		out = append(out, session.Mount{
			Type:        string(m.Type),
			Source:      m.Source,
			Destination: m.Destination,
		})
	}
	return out, nil
}

// Start starts an existing container.
func (c *Client) Start(ctx context.Context, name string) error {
	if err := c.api.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

// Stop stops a container, killing it once grace has elapsed.
func (c *Client) Stop(ctx context.Context, name string, grace time.Duration) error {
	timeout := int(grace.Seconds())
	if err := c.api.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop %s: %w", name, err)
	}
	return nil
}

// Remove deletes a container. Running containers are not forced.
func (c *Client) Remove(ctx context.Context, name string) error {
	if err := c.api.ContainerRemove(ctx, name, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// ExecDetached runs cmd inside a running container without waiting for it.
func (c *Client) ExecDetached(ctx context.Context, name string, env []string, cmd []string) error {
	resp, err := c.api.ContainerExecCreate(ctx, name, container.ExecOptions{
		Env:    env,
		Cmd:    cmd,
		Detach: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create exec: %w", err)
	}

	if err := c.api.ContainerExecStart(ctx, resp.ID, container.ExecStartOptions{Detach: true}); err != nil {
		return fmt.Errorf("failed to start exec: %w", err)
	}
	return nil
}

// Events subscribes to container lifecycle events for names matching prefix.
// The event channel is closed when the subscription ends; the reason, if
// any, is then available on the error channel.
func (c *Client) Events(ctx context.Context, prefix string) (<-chan session.Event, <-chan error) {
	args := filters.NewArgs(
		filters.Arg("type", string(events.ContainerEventType)),
		filters.Arg("name", prefix),
	)
	for _, a := range WatchedActions {
		args.Add("event", string(a))
	}

	msgs, errs := c.api.Events(ctx, events.ListOptions{Filters: args})

	out := make(chan session.Event)
	outErr := make(chan error, 1)

	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					outErr <- io.EOF
					return
				}
				ev := session.Event{Action: string(msg.Action), Name: msg.Actor.Attributes["name"]}
				select {
				case out <- ev:
				case <-ctx.Done():
					outErr <- ctx.Err()
					return
				}
			case err, ok := <-errs:
				if !ok || err == nil {
					err = io.EOF
				}
				outErr <- err
				return
			case <-ctx.Done():
				outErr <- ctx.Err()
				return
			}
		}
	}()

	return out, outErr
}

func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}
