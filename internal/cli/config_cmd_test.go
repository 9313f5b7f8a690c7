package cli

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/fleetd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+config.ConfigFileName)

	data, err := os.ReadFile(config.ConfigFileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "got_is_tod")

	_, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigInit_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	_, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestConfigShow(t *testing.T) {
	path := writeConfig(t, "build-box")

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# source: "+path)
	assert.Contains(t, out, "alias: build-box")
	assert.NotContains(t, out, "got_is_tod")
	assert.Contains(t, out, "instrumentation: fallback")
}

func TestConfigShow_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# source: built-in defaults")
	assert.Contains(t, out, "localhost:8082")
}

func TestConfigShow_LogLevelOverride(t *testing.T) {
	path := writeConfig(t, "build-box")

	out, err := execute(t, "config", "show", "--config", path, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
}

func TestConfigInit_Interactive(t *testing.T) {
	t.Chdir(t.TempDir())

	prevTerm, prevPrompt := isTerminal, promptInit
	t.Cleanup(func() { isTerminal, promptInit = prevTerm, prevPrompt })
	isTerminal = func(io.Writer) bool { return true }

	var seen initAnswers
	promptInit = func(a *initAnswers) error {
		seen = *a
		a.Addr = "0.0.0.0:9090"
		a.Hosts = "build-box, deploy@10.0.0.5:2222"
		a.Runtime = "podman"
		return nil
	}

	_, err := execute(t, "config", "init", "--interactive")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8082", seen.Addr, "prompt starts from defaults")
	assert.Equal(t, "got_is_tod, azure-aluminium", seen.Hosts)

	cfg, err := config.Load(config.ConfigFileName)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
	assert.Equal(t, "podman", cfg.Containers.Runtime)
	assert.Equal(t, []config.Host{
		{Alias: "build-box"},
		{Alias: "10.0.0.5", SSH: "deploy@10.0.0.5:2222"},
	}, cfg.Hosts)
}

func TestConfigInit_InteractiveNeedsTerminal(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "config", "init", "-i")
	require.Error(t, err)
	assert.NoFileExists(t, config.ConfigFileName)
}

func TestConfigInit_InteractivePromptError(t *testing.T) {
	t.Chdir(t.TempDir())

	prevTerm, prevPrompt := isTerminal, promptInit
	t.Cleanup(func() { isTerminal, promptInit = prevTerm, prevPrompt })
	isTerminal = func(io.Writer) bool { return true }
	promptInit = func(*initAnswers) error { return stderrors.New("user aborted") }

	_, err := execute(t, "config", "init", "-i")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to get user input")
}

func TestValidateAddr(t *testing.T) {
	assert.NoError(t, validateAddr("localhost:8082"))
	assert.NoError(t, validateAddr(":8082"))
	assert.Error(t, validateAddr("localhost"))
}
