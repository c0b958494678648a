package desktop

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerOutput(t *testing.T) {
	requireShell(t)

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo 12 34")
	require.NoError(t, err)
	assert.Equal(t, "12 34\n", string(out))
}

func TestExecRunnerExitStatus(t *testing.T) {
	requireShell(t)

	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "exit 3")
	assert.EqualError(t, err, "sh exited with status 3")
}

func TestExecRunnerFoldsStderr(t *testing.T) {
	requireShell(t)

	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 1")
	assert.EqualError(t, err, "sh: exit status 1: boom")
}

func TestExecRunnerTimeoutKillsChildren(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := ExecRunner{}.Run(ctx, "sh", "-c", "sleep 3; echo done")
	took := time.Since(started)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, took, 2*time.Second, "a child holding stdout must not extend the call")
}
