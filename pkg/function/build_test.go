package function

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Success(t *testing.T) {
	requireShell(t)
	err := runBuild(context.Background(), ExecRunner{}, Command{Dir: t.TempDir(), Args: []string{"sh", "-c", "echo compiled"}}, time.Second*5)
	require.NoError(t, err)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	cmd := Command{Dir: t.TempDir(), Args: []string{"sh", "-c", "exit 3"}}

	err := runBuild(context.Background(), ExecRunner{}, cmd, time.Second*5)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, 3, buildErr.ExitCode)
	require.False(t, buildErr.TimedOut)
	require.Equal(t, `function: build "sh -c exit 3" exited with status 3`, buildErr.Error())
}

func TestExecRunner_Timeout(t *testing.T) {
	requireShell(t)
	cmd := Command{Dir: t.TempDir(), Args: []string{"sh", "-c", "sleep 5"}}

	err := runBuild(context.Background(), ExecRunner{}, cmd, 50*time.Millisecond)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.True(t, buildErr.TimedOut)
	require.Contains(t, buildErr.Error(), "timed out")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	err := runBuild(context.Background(), ExecRunner{}, Command{Args: []string{"definitely-not-a-build-tool-xyz"}}, time.Second)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Zero(t, buildErr.ExitCode)
	require.Contains(t, buildErr.Error(), "failed")
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	require.Error(t, ExecRunner{}.Run(context.Background(), Command{}))
}

func TestRunBuild_DefaultsTimeout(t *testing.T) {
	var deadline time.Time
	runner := RunnerFunc(func(ctx context.Context, _ Command) error {
		deadline, _ = ctx.Deadline()
		return nil
	})

	start := time.Now()
	require.NoError(t, runBuild(context.Background(), runner, Command{Args: []string{"x"}}, 0))
	require.WithinDuration(t, start.Add(DefaultBuildTimeout), deadline, 5*time.Second)
}
