package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kdimtricp/ethoimager/internal/models"
)

// DefaultDirName is the snapshot directory created beside the archive.
const DefaultDirName = "IMG_SNAPSHOTS"

// LocalStorage is a snapshot directory on the local filesystem.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// ForArchive returns the snapshot directory dirName beside archivePath.
func ForArchive(archivePath, dirName string) (*LocalStorage, error) {
	if dirName == "" {
		dirName = DefaultDirName
	}
	return NewLocalStorage(filepath.Join(filepath.Dir(archivePath), dirName))
}

func (ls *LocalStorage) Dir() string {
	return ls.basePath
}

func (ls *LocalStorage) RawPath(id, t int64) string {
	return filepath.Join(ls.basePath, models.RawName(id, t))
}

func (ls *LocalStorage) LabeledPath(id, t int64) string {
	return filepath.Join(ls.basePath, models.LabeledName(id, t))
}

// Materialize copies the record image to its raw path and returns that path.
// Nothing is written when the raw or the labeled file already exists, so a
// frame that was already annotated is never re-extracted.
func (ls *LocalStorage) Materialize(rec models.FrameRecord) (string, error) {
	rawPath := ls.RawPath(rec.ID, rec.T)

	for _, p := range []string{ls.LabeledPath(rec.ID, rec.T), rawPath} {
		exists, err := fileExists(p)
		if err != nil {
			return "", err
		}
		if exists {
			return rawPath, nil
		}
	}

	// Written under a temporary name and renamed so a concurrent reader never
	// sees a partial raw frame.
	tmp, err := os.CreateTemp(ls.basePath, ".frame-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(rec.Image); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save frame: %w", err)
	}
	if err := os.Rename(tmpPath, rawPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save frame: %w", err)
	}

	return rawPath, nil
}

// List returns every materialized frame, raw or labeled, sorted by name.
// Hidden in-progress files are left out.
func (ls *LocalStorage) List() ([]string, error) {
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), models.FrameExt) {
			continue
		}
		files = append(files, filepath.Join(ls.basePath, e.Name()))
	}
	sort.Strings(files)

	return files, nil
}

// ListRaw returns the frames still waiting for annotation.
func (ls *LocalStorage) ListRaw() ([]string, error) {
	files, err := ls.List()
	if err != nil {
		return nil, err
	}

	raw := files[:0]
	for _, f := range files {
		if fn, err := models.ParseFrameName(f); err == nil && fn.Raw {
			raw = append(raw, f)
		}
	}
	return raw, nil
}

// Reset wipes the snapshot directory.
func (ls *LocalStorage) Reset() error {
	if err := os.RemoveAll(ls.basePath); err != nil {
		return fmt.Errorf("failed to remove snapshot directory: %w", err)
	}
	if err := os.MkdirAll(ls.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}
