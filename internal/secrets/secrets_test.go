package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingDirIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"))

	keys, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	env, err := s.Env()
	require.NoError(t, err)
	assert.Empty(t, env)
}

func TestStore_EnvTrimsAndSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "OPENAI_API_KEY"), []byte("  sk-123\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "GITHUB_TOKEN"), []byte("ghp_abc"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0700))

	env, err := New(dir).Env()
	require.NoError(t, err)
	assert.Equal(t, []string{"GITHUB_TOKEN=ghp_abc", "OPENAI_API_KEY=sk-123"}, env)
}

func TestStore_SetAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "safeclaw", ".secrets")
	s := New(dir)

	require.NoError(t, s.Set("SLACK_TOKEN", "xoxb-1"))

	info, err := os.Stat(s.Path("SLACK_TOKEN"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"SLACK_TOKEN"}, keys)

	require.NoError(t, s.Delete("SLACK_TOKEN"))
	keys, err = s.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.Error(t, s.Delete("SLACK_TOKEN"))
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	s := New(t.TempDir())

	assert.ErrorIs(t, s.Set("1BAD", "x"), ErrInvalidKey)
	assert.ErrorIs(t, s.Set("BAD-KEY", "x"), ErrInvalidKey)
	assert.ErrorIs(t, s.Delete("../etc/passwd"), ErrInvalidKey)
	assert.Error(t, s.Set("GOOD", ""))
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/safeclaw/.secrets", DefaultDir())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/.config/safeclaw/.secrets", DefaultDir())
}
