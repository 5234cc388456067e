package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/ethoimager/internal/criteria"
	"github.com/kdimtricp/ethoimager/internal/database"
	"github.com/kdimtricp/ethoimager/internal/metrics"
	"github.com/kdimtricp/ethoimager/internal/models"
	"github.com/kdimtricp/ethoimager/internal/storage"
)

type failingSource struct{ err error }

func (f failingSource) Frames(context.Context, string, func(models.FrameRecord) error) error {
	return f.err
}

func setupExtractor(t *testing.T, records ...models.FrameRecord) (*FrameExtractor, *storage.LocalStorage) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ETHOSCOPE_001.db")
	require.NoError(t, database.WriteFixture(path, 1700000000, records...))

	archive, err := database.OpenArchive(context.Background(), path, nil)
	require.NoError(t, err)

	store, err := storage.ForArchive(archive.Path(), "")
	require.NoError(t, err)

	return NewFrameExtractor(archive, store, nil, metrics.New()), store
}

func TestExtract_NilPredicate(t *testing.T) {
	fe, _ := setupExtractor(t, models.FrameRecord{ID: 1, T: 1, Image: []byte("x")})

	files, err := fe.Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestExtract_MaterializesMatchingFrames(t *testing.T) {
	fe, store := setupExtractor(t,
		models.FrameRecord{ID: 1, T: 500, Image: []byte("one")},
		models.FrameRecord{ID: 2, T: 100, Image: []byte("two")},
		models.FrameRecord{ID: 10, T: 9999, Image: []byte("ten")},
	)

	pred, err := criteria.Build(criteria.ColumnID, []int64{1, 10})
	require.NoError(t, err)

	files, err := fe.Extract(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, []string{store.RawPath(1, 500), store.RawPath(10, 9999)}, files)

	content, err := os.ReadFile(store.RawPath(10, 9999))
	require.NoError(t, err)
	assert.Equal(t, []byte("ten"), content)
	assert.NoFileExists(t, store.RawPath(2, 100))
}

func TestExtract_NoMatchesIsEmptyNotNil(t *testing.T) {
	fe, _ := setupExtractor(t, models.FrameRecord{ID: 1, T: 1, Image: []byte("x")})

	pred, err := criteria.Build(criteria.ColumnID, 42)
	require.NoError(t, err)

	files, err := fe.Extract(context.Background(), pred)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestExtract_RerunDoesNotRewrite(t *testing.T) {
	fe, store := setupExtractor(t, models.FrameRecord{ID: 3, T: 2000, Image: []byte("three")})
	pred, err := criteria.Build(criteria.ColumnTime, 2000)
	require.NoError(t, err)

	_, err = fe.Extract(context.Background(), pred)
	require.NoError(t, err)

	raw := store.RawPath(3, 2000)
	require.NoError(t, os.WriteFile(raw, []byte("partially processed"), 0644))

	files, err := fe.Extract(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, []string{raw}, files)

	content, err := os.ReadFile(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("partially processed"), content)
}

func TestExtract_ArchiveFailure(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	fe := NewFrameExtractor(failingSource{err: database.ErrArchiveUnreadable}, store, nil, nil)

	_, err = fe.Extract(context.Background(), &criteria.Predicate{Expr: "id = 1"})
	assert.True(t, errors.Is(err, database.ErrArchiveUnreadable))
}

func TestExtract_Reset(t *testing.T) {
	fe, store := setupExtractor(t, models.FrameRecord{ID: 1, T: 1, Image: []byte("x")})

	_, err := fe.Extract(context.Background(), &criteria.Predicate{Expr: "id = 1"})
	require.NoError(t, err)

	require.NoError(t, fe.Reset())
	files, err := fe.List()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.DirExists(t, store.Dir())
}
