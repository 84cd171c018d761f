package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"safeclaw/internal/session"
)

// fakeRuntime is an in-memory container runtime.
type fakeRuntime struct {
	mu         sync.Mutex
	containers map[string]bool // name -> running
	ports      map[string]uint16
	mounts     map[string][]session.Mount
	events     []session.Event
	daemonErr  error
	listErr    error
	execCmd    []string
	closed     bool
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		containers: map[string]bool{},
		ports:      map[string]uint16{},
		mounts:     map[string][]session.Mount{},
	}
}

func (f *fakeRuntime) ListAll(ctx context.Context, prefix string) ([]session.ContainerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []session.ContainerStatus
	for name, running := range f.containers {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		status := "Exited (0) 3 hours ago"
		if running {
			status = "Up 5 minutes"
		}
		out = append(out, session.ContainerStatus{Name: name, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRuntime) ListRunning(ctx context.Context, name string) ([]session.PortBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.containers[name] || f.ports[name] == 0 {
		return nil, nil
	}
	return []session.PortBinding{{PrivatePort: 7681, PublicPort: f.ports[name]}}, nil
}

func (f *fakeRuntime) InspectMounts(ctx context.Context, name string) ([]session.Mount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounts[name], nil
}

func (f *fakeRuntime) Start(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; !ok {
		return fmt.Errorf("No such container: %s", name)
	}
	f.containers[name] = true
	return nil
}

func (f *fakeRuntime) Stop(ctx context.Context, name string, grace time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.containers[name] {
		return fmt.Errorf("container %s is not running", name)
	}
	f.containers[name] = false
	return nil
}

func (f *fakeRuntime) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	running, ok := f.containers[name]
	if !ok {
		return fmt.Errorf("No such container: %s", name)
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
	f.execCmd = cmd
	return nil
}

// Events delivers the scripted batch and then holds the feed open until ctx ends.
func (f *fakeRuntime) Events(ctx context.Context, prefix string) (<-chan session.Event, <-chan error) {
	out := make(chan session.Event)
	errs := make(chan error, 1)
	f.mu.Lock()
	batch := append([]session.Event(nil), f.events...)
	f.mu.Unlock()

	go func() {
		defer close(out)
		for _, ev := range batch {
			select {
			case out <- ev:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		<-ctx.Done()
		errs <- ctx.Err()
	}()
	return out, errs
}

func (f *fakeRuntime) CheckDaemon(ctx context.Context) error {
	return f.daemonErr
}

func (f *fakeRuntime) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// sampleRuntime has a running "api" session on port 49231 and a stopped default session.
func sampleRuntime() *fakeRuntime {
	rt := newFakeRuntime()
	rt.containers["safeclaw-api"] = true
	rt.containers["safeclaw"] = false
	rt.ports["safeclaw-api"] = 49231
	rt.ports["safeclaw"] = 49300
	rt.mounts["safeclaw-api"] = []session.Mount{
		{Type: "bind", Source: "/home/u/api", Destination: "/workspace/api"},
		{Type: "bind", Source: "/home/u/.claude", Destination: "/home/sclaw/.claude"},
	}
	return rt
}

func useRuntime(t *testing.T, rt *fakeRuntime) {
	t.Helper()
	old := newRuntimeClient
	newRuntimeClient = func() (runtimeClient, error) { return rt, nil }
	t.Cleanup(func() { newRuntimeClient = old })
}

// setConfig overrides a viper key for the duration of the test.
func setConfig(t *testing.T, key string, value any) {
	t.Helper()
	old := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, old) })
}

// executeCommand executes a cobra command and returns its output.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	return executeCommandContext(context.Background(), root, args...)
}

func executeCommandContext(ctx context.Context, root *cobra.Command, args ...string) (out string, err error) {
	resetFlags(root)
	resetContext(root, ctx)
	// Mock exit
	oldExit := exit
	exit = func(code int) {
		if code != 0 {
			panic(fmt.Sprintf("exit-%d", code))
		}
	}
	defer func() { exit = oldExit }()

	b := new(syncBuffer)
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(string); ok && strings.HasPrefix(s, "exit-") {
				out, err = b.String(), errors.New(s)
				return
			}
			panic(r) // Re-panic actual panics
		}
	}()

	root.SetArgs(args)
	root.SetOut(b)
	root.SetErr(b)
	// Mock Stdin to avoid hanging on interactive prompts
	root.SetIn(bytes.NewBufferString(""))
	err = root.ExecuteContext(ctx)
	return b.String(), err
}

// resetFlags resets all flags to their default values.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// resetContext replaces the context cobra cached on every command by a previous run.
func resetContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		resetContext(c, ctx)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
