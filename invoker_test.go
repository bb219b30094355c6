// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func shInvocation(t *testing.T, phase Phase, script string) Invocation {
	t.Helper()
	dir := t.TempDir()
	return Invocation{
		Phase:   phase,
		Argv:    []string{"sh", "-c", script},
		Dir:     dir,
		LogPath: filepath.Join(dir, phase.ID+".log"),
		Threads: 2,
	}
}

func TestExecInvokerSuccess(t *testing.T) {
	iv := &ExecInvoker{}
	phase := Phase{ID: "p", Tool: "sh", ExitCode: 55}
	inv := shInvocation(t, phase, "echo all good")

	require.NoError(t, iv.Run(context.Background(), inv))

	raw, err := os.ReadFile(inv.LogPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "all good")
}

func TestExecInvokerClassifiesFailure(t *testing.T) {
	iv := &ExecInvoker{}
	phase := Phase{ID: "read_classify_2", Tool: "kaiju", ExitCode: 39}
	inv := shInvocation(t, phase, "echo boom >&2; exit 7")

	err := iv.Run(context.Background(), inv)
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	require.Equal(t, 39, te.Code, "failure carries the phase's static code")
	require.Equal(t, 7, te.RawExit, "raw tool status kept for the logs")
	require.Equal(t, inv.LogPath, te.LogPath)
	require.False(t, te.TimedOut)

	raw, err := os.ReadFile(inv.LogPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "boom")
}

func TestExecInvokerTimeout(t *testing.T) {
	iv := &ExecInvoker{}
	phase := Phase{ID: "p", Tool: "sh", ExitCode: 61}
	inv := shInvocation(t, phase, "sleep 5")
	inv.Timeout = 50 * time.Millisecond

	start := time.Now()
	err := iv.Run(context.Background(), inv)
	require.Error(t, err)
	require.Less(t, time.Since(start), 3*time.Second)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	require.True(t, te.TimedOut)
	require.Equal(t, 61, te.Code)
}

func TestExecInvokerMissingTool(t *testing.T) {
	iv := &ExecInvoker{}
	phase := Phase{ID: "p", Tool: "no-such-tool", ExitCode: 40}
	inv := shInvocation(t, phase, "")
	inv.Argv = []string{"definitely-not-a-real-tool-4242"}

	err := iv.Run(context.Background(), inv)
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	require.Equal(t, 40, te.Code)
	require.Equal(t, -1, te.RawExit)
}

func TestExecInvokerCancellation(t *testing.T) {
	iv := &ExecInvoker{}
	phase := Phase{ID: "p", Tool: "sh", ExitCode: 20}
	inv := shInvocation(t, phase, "sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := iv.Run(ctx, inv)
	require.Error(t, err)
	require.Less(t, time.Since(start), 3*time.Second)
}
