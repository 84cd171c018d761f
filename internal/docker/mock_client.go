package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
)

// MockAPI implements APIClient for testing and mock execution.
type MockAPI struct {
	PingFunc                func(ctx context.Context) (types.Ping, error)
	ContainerListFunc       func(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspectFunc    func(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerStartFunc      func(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStopFunc       func(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemoveFunc     func(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerExecCreateFunc func(ctx context.Context, container string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecStartFunc  func(ctx context.Context, execID string, config container.ExecStartOptions) error
	EventsFunc              func(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error)
	CloseFunc               func() error
}

func (m *MockAPI) Ping(ctx context.Context) (types.Ping, error) {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return types.Ping{}, nil
}

func (m *MockAPI) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	if m.ContainerListFunc != nil {
		return m.ContainerListFunc(ctx, options)
	}
	return nil, nil
}

func (m *MockAPI) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	if m.ContainerInspectFunc != nil {
		return m.ContainerInspectFunc(ctx, containerID)
	}
	return container.InspectResponse{}, nil
}

func (m *MockAPI) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	if m.ContainerStartFunc != nil {
		return m.ContainerStartFunc(ctx, containerID, options)
	}
	return nil
}

func (m *MockAPI) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	if m.ContainerStopFunc != nil {
		return m.ContainerStopFunc(ctx, containerID, options)
	}
	return nil
}

func (m *MockAPI) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	if m.ContainerRemoveFunc != nil {
		return m.ContainerRemoveFunc(ctx, containerID, options)
	}
	return nil
}

func (m *MockAPI) ContainerExecCreate(ctx context.Context, container string, options container.ExecOptions) (container.ExecCreateResponse, error) {
	if m.ContainerExecCreateFunc != nil {
		return m.ContainerExecCreateFunc(ctx, container, options)
	}
	return container.ExecCreateResponse{ID: "mock-exec-id"}, nil
}

func (m *MockAPI) ContainerExecStart(ctx context.Context, execID string, config container.ExecStartOptions) error {
	if m.ContainerExecStartFunc != nil {
		return m.ContainerExecStartFunc(ctx, execID, config)
	}
	return nil
}

func (m *MockAPI) Events(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error) {
	if m.EventsFunc != nil {
		return m.EventsFunc(ctx, options)
	}
	return make(chan events.Message), make(chan error)
}

func (m *MockAPI) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// NewMockClient creates a new Docker client with a configurable mock API.
// It returns the Client wrapper and the underlying MockAPI struct for configuration.
func NewMockClient() (*Client, *MockAPI) {
	mock := &MockAPI{}
	return &Client{api: mock}, mock
}
