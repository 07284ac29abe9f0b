// Package security confines caller-supplied document paths to the upload
// directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that resolve outside the root.
var ErrOutsideRoot = errors.New("path is outside the upload directory")

// PathValidator resolves document paths against a root directory.
type PathValidator struct {
	root string
}

// NewPathValidator returns a validator rooted at dir. The directory does not
// have to exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute upload directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path. Relative paths are taken
// relative to the root. Null bytes are stripped. Both the lexical path and,
// when it exists, its symlink target must stay inside the root.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	clean := filepath.Clean(path)

	if !v.Contains(clean) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	if real, err := filepath.EvalSymlinks(clean); err == nil && !v.Contains(real) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	return clean, nil
}

// Contains reports whether the absolute path lies within the root, either
// literally or through the root's own symlink target.
func (v *PathValidator) Contains(path string) bool {
	roots := []string{v.root}
	if real, err := filepath.EvalSymlinks(v.root); err == nil && real != v.root {
		roots = append(roots, real)
	}
	for _, root := range roots {
		if within(root, path) {
			return true
		}
	}
	return false
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}
