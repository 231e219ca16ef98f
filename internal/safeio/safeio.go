package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SafeFS resolves all paths relative to a fixed root and refuses traversal
// outside it. Instances are constructed explicitly and passed by reference;
// there is no process-wide default.
type SafeFS struct {
	absRoot string // absolute root with symlinks resolved
}

// NewSafeFS locks all future operations to the given root directory.
// The root path is resolved to an absolute, symlink-free directory and is
// created when missing.
func NewSafeFS(root string) (*SafeFS, error) {
	if root == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &SafeFS{absRoot: abs}, nil
}

// Root returns the absolute root directory bound to this SafeFS.
func (s *SafeFS) Root() string {
	if s == nil {
		return ""
	}
	return s.absRoot
}

// SafeReadFile reads a file relative to the root.
func (s *SafeFS) SafeReadFile(userPath string) ([]byte, error) {
	p, err := s.resolve(userPath, false)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("safeio: path is a directory")
	}
	return os.ReadFile(p)
}

// SafeWriteFile writes data to a file relative to the root, creating parent
// directories as needed. The write is atomic: data lands in a temp file in
// the target directory and is renamed into place.
func (s *SafeFS) SafeWriteFile(userPath string, data []byte) error {
	p, err := s.resolve(userPath, true)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// SafeStat returns metadata for a file or directory under the root.
func (s *SafeFS) SafeStat(userPath string) (fs.FileInfo, error) {
	p, err := s.resolve(userPath, false)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// SafeReadDir lists entries for a directory relative to the root.
func (s *SafeFS) SafeReadDir(userPath string) ([]fs.DirEntry, error) {
	dir, err := s.resolve(userPath, false)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: path is not a directory")
	}
	return os.ReadDir(dir)
}

// resolve maps a user path onto the root. forWrite skips symlink resolution
// of the leaf (which may not exist yet) but still validates the directory.
func (s *SafeFS) resolve(userPath string, forWrite bool) (string, error) {
	if s == nil {
		return "", errors.New("safeio: filesystem not configured")
	}
	if userPath == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(filepath.FromSlash(userPath))
	if clean == "." {
		return s.absRoot, nil
	}

	isAbs := filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "")
	if !isAbs {
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return "", errors.New("safeio: path traversal not allowed")
		}
	}

	var joined string
	if isAbs {
		joined = clean
	} else {
		joined = filepath.Join(s.absRoot, clean)
	}

	if forWrite {
		if !hasPathPrefix(joined, s.absRoot) {
			return "", fmt.Errorf("safeio: resolved outside root (root=%s, path=%s)", s.absRoot, joined)
		}
		return joined, nil
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !hasPathPrefix(resolved, s.absRoot) {
		return "", fmt.Errorf("safeio: resolved outside root (root=%s, path=%s)", s.absRoot, resolved)
	}
	return resolved, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if len(root) == 0 {
		return true
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	if !strings.HasSuffix(path, sep) {
		path += sep
	}
	return strings.HasPrefix(path, root)
}
