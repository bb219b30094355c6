// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"

	"github.com/ltalignani/pimgavir-v2-sub000/utils"
)

func makeResultTree(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "s1_final_report.txt"), []byte("report body\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "logs", "s1_trim_reads.log"), []byte("tool output\n"), 0o644))
	return src
}

func TestNewTransportSelection(t *testing.T) {
	tr, err := NewTransport(utils.TransferConfig{})
	require.NoError(t, err)
	require.Nil(t, tr, "no transfer configured leaves results on scratch")

	_, err = NewTransport(utils.TransferConfig{Kind: "local"})
	require.Error(t, err, "local transport needs a dest")

	_, err = NewTransport(utils.TransferConfig{Kind: "teleport", Dest: "/x"})
	require.Error(t, err)

	tr, err = NewTransport(utils.TransferConfig{Kind: "local", Dest: "/x"})
	require.NoError(t, err)
	require.IsType(t, &LocalTransport{}, tr)

	tr, err = NewTransport(utils.TransferConfig{Kind: "infiniband", Dest: "/x", Staging: "/ib"})
	require.NoError(t, err)
	require.IsType(t, &InfinibandTransport{}, tr)
}

func TestLocalTransportCopyThenDelete(t *testing.T) {
	src := makeResultTree(t)
	dest := t.TempDir()

	tr := &LocalTransport{Dest: dest}
	require.NoError(t, tr.Store(context.Background(), src, "s1"))

	raw, err := os.ReadFile(filepath.Join(dest, "s1", "s1_final_report.txt"))
	require.NoError(t, err)
	require.Equal(t, "report body\n", string(raw))

	_, err = os.Stat(filepath.Join(dest, "s1", "logs", "s1_trim_reads.log"))
	require.NoError(t, err)

	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err), "scratch copy must be deleted after the copy lands")
}

func TestLocalTransportCompression(t *testing.T) {
	src := makeResultTree(t)
	dest := t.TempDir()

	tr := &LocalTransport{Dest: dest, Compress: true}
	require.NoError(t, tr.Store(context.Background(), src, "s1"))

	f, err := os.Open(filepath.Join(dest, "s1", "s1_final_report.txt.sz"))
	require.NoError(t, err)
	defer f.Close()
	raw, err := io.ReadAll(snappy.NewReader(f))
	require.NoError(t, err)
	require.Equal(t, "report body\n", string(raw))
}

func TestInfinibandTransportStagesThenMoves(t *testing.T) {
	src := makeResultTree(t)
	dest := t.TempDir()
	staging := t.TempDir()

	tr := &InfinibandTransport{
		Staging: staging,
		Local:   LocalTransport{Dest: dest},
	}
	require.NoError(t, tr.Store(context.Background(), src, "s1"))

	_, err := os.Stat(filepath.Join(dest, "s1", "s1_final_report.txt"))
	require.NoError(t, err)

	// Neither the staging copy nor the scratch copy survives.
	_, err = os.Stat(filepath.Join(staging, "s1"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err))
}
