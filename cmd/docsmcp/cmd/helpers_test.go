package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is an isolated config file, data directory and docs tree.
type testEnv struct {
	t          *testing.T
	configPath string
	dataDir    string
	docs       string
	stdin      string
}

// newTestEnv isolates the CLI from the user's configuration and
// environment and writes a small docs tree.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	home := t.TempDir()
	for _, k := range []string{
		"DOCSMCP_DATA_DIR", "DOCSMCP_PROVIDER", "DOCSMCP_MODEL", "DOCSMCP_OLLAMA_HOST",
		"OLLAMA_HOST", "DOCSMCP_OPENAI_BASE_URL", "OPENAI_API_KEY", "DOCSMCP_API_KEY",
		"DOCSMCP_BATCH_SIZE", "DOCSMCP_CACHE_SIZE", "DOCSMCP_TIMEOUT", "DOCSMCP_LOG_LEVEL",
		"DOCSMCP_WATCH_DEBOUNCE",
	} {
		t.Setenv(k, "")
	}
	e := &testEnv{
		t:          t,
		configPath: filepath.Join(home, "config", "docsmcp", "config.yaml"),
		dataDir:    filepath.Join(home, "data"),
		docs:       filepath.Join(home, "docs"),
	}
	t.Setenv("DOCSMCP_HOME", e.dataDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("NO_COLOR", "1")

	e.write("install.md", "# Installation\n\nDownload the release archive and put the binary on your PATH.\n")
	e.write("guide/usage.md", "# Usage\n\n## Searching\n\nRun the search command with a question to query the documentation.\n")
	e.write("notes.txt", "not markdown\n")
	return e
}

// write creates a file under the docs tree.
func (e *testEnv) write(rel, content string) {
	e.t.Helper()
	path := filepath.Join(e.docs, filepath.FromSlash(rel))
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
}

// run executes the CLI with the isolated config file.
func (e *testEnv) run(args ...string) (stdout, stderr string, err error) {
	e.t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(e.stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// initBase creates a base with the static provider.
func (e *testEnv) initBase(name string) {
	e.t.Helper()
	_, _, err := e.run("init", name, e.docs, "--provider", "static")
	require.NoError(e.t, err)
}
