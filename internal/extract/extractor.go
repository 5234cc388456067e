package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kdimtricp/ethoimager/internal/criteria"
	"github.com/kdimtricp/ethoimager/internal/metrics"
	"github.com/kdimtricp/ethoimager/internal/models"
	"github.com/kdimtricp/ethoimager/internal/storage"
)

// FrameSource streams archive rows matching a WHERE clause.
type FrameSource interface {
	Frames(ctx context.Context, where string, fn func(models.FrameRecord) error) error
}

type FrameExtractor struct {
	source  FrameSource
	store   storage.FrameStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewFrameExtractor(source FrameSource, store storage.FrameStore, logger *slog.Logger, m *metrics.Metrics) *FrameExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameExtractor{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

// Extract materializes every frame matching pred and returns the raw paths.
// A nil predicate runs no query and returns a nil slice, which callers treat
// as "use the frames already on disk".
func (fe *FrameExtractor) Extract(ctx context.Context, pred *criteria.Predicate) ([]string, error) {
	if pred == nil {
		return nil, nil
	}

	filenames := []string{}
	err := fe.source.Frames(ctx, pred.Expr, func(rec models.FrameRecord) error {
		path, err := fe.store.Materialize(rec)
		if err != nil {
			return fmt.Errorf("failed to materialize frame %d at %d: %w", rec.ID, rec.T, err)
		}
		fe.metrics.FrameExtracted()
		filenames = append(filenames, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fe.logger.Info("frames extracted", "criteria", pred.Expr, "count", len(filenames), "dir", fe.store.Dir())
	return filenames, nil
}

func (fe *FrameExtractor) List() ([]string, error) {
	return fe.store.List()
}

func (fe *FrameExtractor) ListRaw() ([]string, error) {
	return fe.store.ListRaw()
}

// Reset deletes every materialized frame.
func (fe *FrameExtractor) Reset() error {
	fe.logger.Info("resetting snapshot directory", "dir", fe.store.Dir())
	return fe.store.Reset()
}
