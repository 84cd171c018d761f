package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeRuntime is an in-memory Runtime. Containers map name -> running flag.
type fakeRuntime struct {
	mu         sync.Mutex
	containers map[string]bool
	ports      map[string][]PortBinding
	mounts     map[string][]Mount

	listErr  error
	portErr  error
	mountErr error
	startErr error
	execErr  error

	execEnv []string
	execCmd []string
	grace   time.Duration
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		containers: map[string]bool{},
		ports:      map[string][]PortBinding{},
		mounts:     map[string][]Mount{},
	}
}

func (f *fakeRuntime) ListAll(ctx context.Context, prefix string) ([]ContainerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []ContainerStatus
	for name, running := range f.containers {
		status := "Exited (0) 2 hours ago"
		if running {
			status = "Up 5 minutes"
		}
		out = append(out, ContainerStatus{Name: name, Status: status})
	}
	return out, nil
}

func (f *fakeRuntime) ListRunning(ctx context.Context, name string) ([]PortBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.portErr != nil {
		return nil, f.portErr
	}
	if !f.containers[name] {
		return nil, nil
	}
	return f.ports[name], nil
}

func (f *fakeRuntime) InspectMounts(ctx context.Context, name string) ([]Mount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mountErr != nil {
		return nil, f.mountErr
	}
	return f.mounts[name], nil
}

func (f *fakeRuntime) Start(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if _, ok := f.containers[name]; !ok {
		return errors.New("no such container: " + name)
	}
	f.containers[name] = true
	return nil
}

func (f *fakeRuntime) Stop(ctx context.Context, name string, grace time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grace = grace
	running, ok := f.containers[name]
	if !ok {
		return errors.New("no such container: " + name)
	}
	if !running {
		return errors.New("container already stopped")
	}
	f.containers[name] = false
	return nil
}

func (f *fakeRuntime) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	running, ok := f.containers[name]
	if !ok {
		return errors.New("no such container: " + name)
	}
	if running {
		return errors.New("cannot remove a running container")
	}
	delete(f.containers, name)
	return nil
}

func (f *fakeRuntime) ExecDetached(ctx context.Context, name string, env []string, cmd []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return f.execErr
	}
	f.execEnv = env
	f.execCmd = cmd
	return nil
}

func (f *fakeRuntime) Events(ctx context.Context, prefix string) (<-chan Event, <-chan error) {
	return make(chan Event), make(chan error)
}

type staticEnv struct {
	env []string
	err error
}

func (s staticEnv) Env() ([]string, error) { return s.env, s.err }

type countingRecorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingRecorder) ObserveCommand(op string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	key := op + ":fail"
	if success {
		key = op + ":ok"
	}
	r.calls[key]++
}
