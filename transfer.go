// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"

	"github.com/ltalignani/pimgavir-v2-sub000/utils"
)

// Transport moves a run's results from the scratch area to permanent
// storage once the run has fully succeeded.  The copy happens first;
// the scratch copy is deleted only after every file landed.
type Transport interface {
	Store(ctx context.Context, srcDir, sample string) error
}

// NewTransport builds the transport selected by the configuration.
// An empty kind leaves results on scratch (nil transport).
func NewTransport(cfg utils.TransferConfig) (Transport, error) {
	switch cfg.Kind {
	case "":
		return nil, nil
	case "local":
		if cfg.Dest == "" {
			return nil, fmt.Errorf("transfer: local transport requires a dest")
		}
		return &LocalTransport{Dest: cfg.Dest, Compress: cfg.Compress}, nil
	case "infiniband":
		if cfg.Dest == "" || cfg.Staging == "" {
			return nil, fmt.Errorf("transfer: infiniband transport requires dest and staging")
		}
		return &InfinibandTransport{
			Staging: cfg.Staging,
			Local:   LocalTransport{Dest: cfg.Dest, Compress: cfg.Compress},
		}, nil
	}
	return nil, fmt.Errorf("transfer: unknown transport kind %q", cfg.Kind)
}

// LocalTransport copies the result tree to Dest/<sample>/ on the
// permanent filesystem, then removes the scratch copy.  With Compress
// set, files are snappy-framed on the way out and get a ".sz" suffix.
type LocalTransport struct {
	Dest     string
	Compress bool
}

func (t *LocalTransport) Store(ctx context.Context, srcDir, sample string) error {
	dest := filepath.Join(t.Dest, sample)
	if err := copyTree(ctx, srcDir, dest, t.Compress); err != nil {
		return err
	}
	return os.RemoveAll(srcDir)
}

// InfinibandTransport is the IB-optimized variant of the copy-out:
// results are staged onto the IB-mounted filesystem first, then moved
// into place on permanent storage, so the long haul runs over the
// fast interconnect.
type InfinibandTransport struct {
	Staging string
	Local   LocalTransport
}

func (t *InfinibandTransport) Store(ctx context.Context, srcDir, sample string) error {
	stage := filepath.Join(t.Staging, sample)
	if err := copyTree(ctx, srcDir, stage, t.Local.Compress); err != nil {
		return err
	}
	dest := filepath.Join(t.Local.Dest, sample)
	if err := copyTree(ctx, stage, dest, false); err != nil {
		return err
	}
	if err := os.RemoveAll(stage); err != nil {
		return err
	}
	return os.RemoveAll(srcDir)
}

// copyTree copies every regular file under src to dst, preserving the
// relative layout.  Compression never double-applies to files already
// carrying the ".sz" suffix.
func copyTree(ctx context.Context, src, dst string, compress bool) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if compress && !strings.HasSuffix(path, ".sz") {
			return copyCompressed(path, target+".sz")
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyCompressed(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	wtr := snappy.NewBufferedWriter(out)
	if _, err := io.Copy(wtr, in); err != nil {
		wtr.Close()
		out.Close()
		return err
	}
	if err := wtr.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
