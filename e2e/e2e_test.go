//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drivewhizz/testutil"
)

var (
	binaryPath string
	moduleRoot string
)

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "drivewhizz-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	moduleRoot = testutil.FindModuleRoot("..")
	testutil.LoadDotEnv(filepath.Join(moduleRoot, ".env"))

	binaryPath = filepath.Join(tmpDir, "drivewhizz")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// isolatedEnv returns an environment whose config and data directories live
// under a fresh temp dir, plus the drivewhizz data directory.
func isolatedEnv(t *testing.T) (env []string, dataDir string) {
	t.Helper()

	home := t.TempDir()

	env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, "config"),
		"XDG_DATA_HOME="+filepath.Join(home, "data"),
		"DRIVEWHIZZ_CONFIG=",
	)

	return env, filepath.Join(home, "data", "drivewhizz")
}

func runCLI(t *testing.T, env []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

func TestE2E_DemoExec(t *testing.T) {
	env, _ := isolatedEnv(t)

	stdout, stderr, err := runCLI(t, env, "exec", "--demo", "LIST", "/")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "📁 ProjectX")
	assert.Contains(t, stdout, "📄 notes.txt")
}

func TestE2E_DemoExecJSON(t *testing.T) {
	env, _ := isolatedEnv(t)

	stdout, stderr, err := runCLI(t, env, "exec", "--demo", "--json", "SUMMARY", "/ProjectX/report.pdf")
	require.NoError(t, err, stderr)

	var resp struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}

	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "info", resp.Kind)
	assert.Contains(t, resp.Message, "Summary for report.pdf")
}

func TestE2E_ErrorReplyExitCode(t *testing.T) {
	env, _ := isolatedEnv(t)

	stdout, _, err := runCLI(t, env, "exec", "--demo", "MOVE", "/notes.txt", "/nowhere")

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, stdout, `Error: Path not found at "/nowhere"`)
}

func TestE2E_DemoChatFromPipe(t *testing.T) {
	env, _ := isolatedEnv(t)

	cmd := exec.Command(binaryPath, "chat", "--demo")
	cmd.Env = env
	cmd.Stdin = bytes.NewBufferString("MOVE /notes.txt /Archive\nLIST /Archive\n")

	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "📄 notes.txt")
}

func TestE2E_LogoutWithoutSession(t *testing.T) {
	env, _ := isolatedEnv(t)

	_, stderr, err := runCLI(t, env, "logout")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Logged out.")
}

// TestE2E_LiveList runs against the Drive of the account whose session is in
// .testdata/session.json. Enabled with DRIVEWHIZZ_E2E_LIVE=1 and the OAuth
// client in the environment or .env.
func TestE2E_LiveList(t *testing.T) {
	src, ok := testutil.LiveSessionPath(moduleRoot)
	if !ok {
		t.Skip("live e2e disabled")
	}

	env, dataDir := isolatedEnv(t)
	testutil.CopyFile(src, filepath.Join(dataDir, "session.json"), 0o600)

	stdout, stderr, err := runCLI(t, env, "exec", "--json", "LIST", "/")
	require.NoError(t, err, stderr)

	var resp struct {
		Kind string `json:"kind"`
	}

	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "listing", resp.Kind)
}
