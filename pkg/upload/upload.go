// Package upload moves completed datasets to a remote boundary. Only
// the filesystem staging remote ships today; the Remote interface
// keeps object-store backends pluggable without touching callers.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/invisibility-inc/devent/pkg/dataset"
)

// ErrRemoteExists is returned when the remote already holds a dataset
// under the requested name. Uploads never overwrite.
var ErrRemoteExists = errors.New("remote already holds this dataset")

// Remote receives completed datasets.
type Remote interface {
	// Push transfers the dataset's files under name. It must be atomic
	// from the reader's perspective: a partially pushed dataset never
	// appears complete on the remote.
	Push(ctx context.Context, ds *dataset.Dataset, name string) error
}

// StagingRemote copies datasets into a local staging directory, the
// hand-off point for external sync tooling.
type StagingRemote struct {
	Dir string
}

// Push copies the dataset into the staging directory. The metadata
// record is copied last so an interrupted copy is recognisable as
// incomplete by the same rule that governs local datasets.
func (r StagingRemote) Push(ctx context.Context, ds *dataset.Dataset, name string) error {
	if strings.TrimSpace(r.Dir) == "" {
		return errors.New("staging directory must be configured")
	}
	target := filepath.Join(r.Dir, name)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrRemoteExists, target)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create staging target: %w", err)
	}

	ordered := []string{ds.Layout.VideoPath, ds.Layout.EventLogPath, ds.Layout.MetadataPath}
	for _, src := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(src, filepath.Join(target, filepath.Base(src))); err != nil {
			return fmt.Errorf("stage %s: %w", filepath.Base(src), err)
		}
	}
	return nil
}

// Push validates that dir is a complete dataset and transfers it to
// the remote under name, defaulting to the dataset's directory name.
// Incomplete or corrupt directories are refused before any bytes move.
func Push(ctx context.Context, remote Remote, dir, name string) (string, error) {
	ds, err := dataset.Open(dir)
	if err != nil {
		return "", fmt.Errorf("refusing upload: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(ds.Dir)
	}
	if err := remote.Push(ctx, ds, name); err != nil {
		return "", err
	}
	return name, nil
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
