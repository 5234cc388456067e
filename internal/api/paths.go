package api

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kdimtricp/ethoimager/internal/database"
)

// ErrPathOutsideRoot rejects archive paths that leave the served root.
var ErrPathOutsideRoot = errors.New("archive path outside archive root")

// resolveArchive maps a client-supplied path onto the archive root.
// Relative paths are taken from the root and symlinks are followed before
// the containment check.
func resolveArchive(root, path string) (string, error) {
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve archive root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(rootAbs); err == nil {
		rootAbs = resolved
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(rootAbs, path)
	}
	path = filepath.Clean(path)
	if !within(rootAbs, path) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", database.ErrArchiveUnreadable, err)
	}
	if !within(rootAbs, resolved) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
	}
	return resolved, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
