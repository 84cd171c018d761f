package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommander(rt *fakeRuntime, env EnvSource, rec Recorder) *Commander {
	cfg := CommanderConfig{
		Prefix:       "safeclaw",
		TerminalPort: 7681,
		Wrapper:      "/home/sclaw/ttyd-wrapper.sh",
		Title:        "SafeClaw",
		StopGrace:    time.Second,
		CreateScript: "/bin/false",
	}
	return NewCommander(nil, rt, newTestLister(rt), env, rec, cfg)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestCommander_Stop(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["safeclaw-a"] = true
	rec := &countingRecorder{}
	c := newTestCommander(rt, nil, rec)

	assert.True(t, c.Stop(context.Background(), "safeclaw-a"))
	assert.Equal(t, time.Second, rt.grace)
	assert.False(t, rt.containers["safeclaw-a"])

	assert.False(t, c.Stop(context.Background(), "safeclaw-a"), "already stopped")
	assert.False(t, c.Stop(context.Background(), "safeclaw-missing"))
	assert.Equal(t, 1, rec.calls["stop:ok"])
	assert.Equal(t, 2, rec.calls["stop:fail"])
}

func TestCommander_StopThenSnapshotConverges(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["safeclaw-a"] = true
	rt.ports["safeclaw-a"] = []PortBinding{{PrivatePort: 7681, PublicPort: 41000}}
	c := newTestCommander(rt, nil, nil)

	require.True(t, c.Stop(context.Background(), "safeclaw-a"))

	sessions := newTestLister(rt).ListSessions(context.Background())
	require.Len(t, sessions, 1)
	assert.Equal(t, StateStopped, sessions[0].State)
	assert.Nil(t, sessions[0].Port)
}

func TestCommander_DeleteRunningIsRejected(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["safeclaw-a"] = true
	c := newTestCommander(rt, nil, nil)

	assert.False(t, c.Delete(context.Background(), "safeclaw-a"))

	sessions := newTestLister(rt).ListSessions(context.Background())
	require.Len(t, sessions, 1)
	assert.Equal(t, StateRunning, sessions[0].State)
}

func TestCommander_DeleteStopped(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["safeclaw-a"] = false
	c := newTestCommander(rt, nil, nil)

	assert.True(t, c.Delete(context.Background(), "safeclaw-a"))
	assert.Empty(t, newTestLister(rt).ListSessions(context.Background()))
	assert.False(t, c.Delete(context.Background(), "safeclaw-a"))
}

func TestCommander_Start(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["safeclaw-demo"] = false
	rt.ports["safeclaw-demo"] = []PortBinding{{PrivatePort: 7681, PublicPort: 49231}}
	c := newTestCommander(rt, staticEnv{env: []string{"API_KEY=secret"}}, nil)

	res := c.Start(context.Background(), "safeclaw-demo")
	assert.True(t, res.Success)
	assert.Equal(t, "http://localhost:49231", res.URL)
	assert.Equal(t, []string{"API_KEY=secret"}, rt.execEnv)
	assert.Equal(t, []string{
		"ttyd", "-W", "-t", "titleFixed=SafeClaw - demo", "-p", "7681", "/home/sclaw/ttyd-wrapper.sh",
	}, rt.execCmd)
}

func TestCommander_StartWithoutBoundPort(t *testing.T) {
	rt := newFakeRuntime()
	rt.containers["safeclaw"] = false
	c := newTestCommander(rt, staticEnv{err: os.ErrNotExist}, nil)

	res := c.Start(context.Background(), "safeclaw")
	assert.True(t, res.Success)
	assert.Empty(t, res.URL)
	assert.Nil(t, rt.execEnv)
	assert.Contains(t, rt.execCmd, "titleFixed=SafeClaw")
}

func TestCommander_StartFailures(t *testing.T) {
	t.Run("Start Error", func(t *testing.T) {
		rt := newFakeRuntime()
		rt.containers["safeclaw-a"] = false
		rt.startErr = errors.New("boom")
		res := newTestCommander(rt, nil, nil).Start(context.Background(), "safeclaw-a")
		assert.Equal(t, Result{}, res)
		assert.Nil(t, rt.execCmd)
	})

	t.Run("Exec Error", func(t *testing.T) {
		rt := newFakeRuntime()
		rt.containers["safeclaw-a"] = false
		rt.ports["safeclaw-a"] = []PortBinding{{PrivatePort: 7681, PublicPort: 49000}}
		rt.execErr = errors.New("ttyd not found")
		res := newTestCommander(rt, nil, nil).Start(context.Background(), "safeclaw-a")
		assert.False(t, res.Success)
		assert.Empty(t, res.URL)
	})
}

func TestCreateArgs(t *testing.T) {
	args := CreateArgs(CreateOptions{Name: "demo", Query: `say "hi"`})
	assert.Equal(t, []string{"-s", "demo", "-q", `say \"hi\"`, "-n"}, args)

	args = CreateArgs(CreateOptions{Name: " demo ", Volume: "/home/x/proj"})
	assert.Equal(t, []string{"-s", "demo", "-v", "/home/x/proj", "-n"}, args)

	assert.Equal(t, []string{"-n"}, CreateArgs(CreateOptions{}))
}

func TestCommander_CreateSuccess(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	t.Setenv("SAFECLAW_TEST_ARGS", argsFile)

	rt := newFakeRuntime()
	c := newTestCommander(rt, nil, nil)
	c.cfg.CreateScript = writeScript(t, `printf '%s\n' "$@" > "$SAFECLAW_TEST_ARGS"
echo "Starting safeclaw-demo..."
echo "Open http://localhost:49500 in your browser"`)

	res := c.Create(context.Background(), CreateOptions{Name: "demo", Query: `say "hi"`})
	assert.True(t, res.Success)
	assert.Equal(t, "http://localhost:49500", res.URL)
	assert.Empty(t, res.Error)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"-s", "demo", "-q", `say \"hi\"`, "-n"}, strings.Split(strings.TrimSpace(string(data)), "\n"))
}

func TestCommander_CreateFailure(t *testing.T) {
	rec := &countingRecorder{}
	c := newTestCommander(newFakeRuntime(), nil, rec)

	c.cfg.CreateScript = writeScript(t, `echo "name already exists" >&2
exit 1`)
	res := c.Create(context.Background(), CreateOptions{Name: "demo", Query: `say "hi"`})
	assert.Equal(t, Result{Success: false, Error: "name already exists"}, res)

	c.cfg.CreateScript = writeScript(t, "exit 3")
	res = c.Create(context.Background(), CreateOptions{Name: "demo"})
	assert.Equal(t, DefaultCreateError, res.Error)

	c.cfg.CreateScript = filepath.Join(t.TempDir(), "missing.sh")
	res = c.Create(context.Background(), CreateOptions{Name: "demo"})
	assert.False(t, res.Success)
	assert.Equal(t, DefaultCreateError, res.Error)

	assert.Equal(t, 3, rec.calls["create:fail"])
}
