package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"genforge/internal/safeio"
)

// DiskStore writes artifacts under a root-locked directory, one subtree per
// run. Writes are atomic (temp file + rename via safeio).
type DiskStore struct {
	fs *safeio.SafeFS
}

// NewDiskStore roots the store at dir, creating it when missing.
func NewDiskStore(dir string) (*DiskStore, error) {
	fsys, err := safeio.NewSafeFS(dir)
	if err != nil {
		return nil, fmt.Errorf("disk store: %w", err)
	}
	return &DiskStore{fs: fsys}, nil
}

func (d *DiskStore) Put(ctx context.Context, runID, p string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := diskKey(runID, p)
	if err != nil {
		return err
	}
	return d.fs.SafeWriteFile(key, content)
}

func (d *DiskStore) Get(ctx context.Context, runID, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := diskKey(runID, p)
	if err != nil {
		return nil, err
	}
	b, err := d.fs.SafeReadFile(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (d *DiskStore) List(ctx context.Context, runID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("disk store: run id is required")
	}
	root := filepath.Join(d.fs.Root(), runID)
	var paths []string
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func diskKey(runID, p string) (string, error) {
	runID = strings.TrimSpace(runID)
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if runID == "" {
		return "", fmt.Errorf("disk store: run id is required")
	}
	if p == "" {
		return "", fmt.Errorf("disk store: path is required")
	}
	return path.Join(runID, p), nil
}
