// Package imager composes extraction, annotation and video assembly into
// one request.
package imager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kdimtricp/ethoimager/internal/criteria"
)

type Extractable interface {
	Extract(ctx context.Context, pred *criteria.Predicate) ([]string, error)
	List() ([]string, error)
	ListRaw() ([]string, error)
	Reset() error
}

type Annotatable interface {
	Annotate(ctx context.Context, rawPaths []string, workers int) []string
}

type VideoProducible interface {
	Assemble(ctx context.Context, fps int) (string, error)
}

// Request selects frames by id and/or time offset. A nil slice means the
// filter is absent; an empty non-nil slice is rejected.
type Request struct {
	IDs        []int64
	Times      []int64
	Connective criteria.Connective
	Annotate   bool
	Video      bool
	FPS        int
	Workers    int
	// Resume annotates raw frames left behind by an earlier run when no
	// filter is given.
	Resume bool
}

type Options struct {
	// ForceAnnotate annotates extracted frames even when the request did not
	// ask for it.
	ForceAnnotate bool
	Workers       int
	FPS           int
}

type Imager struct {
	extractor Extractable
	annotator Annotatable
	video     VideoProducible
	opts      Options
	logger    *slog.Logger
}

func New(extractor Extractable, annotator Annotatable, video VideoProducible, opts Options, logger *slog.Logger) *Imager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Imager{
		extractor: extractor,
		annotator: annotator,
		video:     video,
		opts:      opts,
		logger:    logger,
	}
}

// Run executes req and returns the resulting files: the frames touched by the
// request, the single video when req.Video is set, or every materialized
// frame when no filter was given.
func (im *Imager) Run(ctx context.Context, req Request) ([]string, error) {
	logger := im.logger.With("run_id", uuid.New().String())

	pred, err := criteria.Resolve(req.IDs, req.Times, req.Connective)
	if err != nil {
		return nil, err
	}
	logger.Debug("criteria resolved", "criteria", pred.String())

	filenames, err := im.extractor.Extract(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("failed to extract frames: %w", err)
	}

	resumed := false
	if filenames == nil && req.Resume {
		resumed = true
		if filenames, err = im.extractor.ListRaw(); err != nil {
			return nil, err
		}
		logger.Info("resuming annotation", "frames", len(filenames))
		if len(filenames) == 0 {
			filenames = nil
		}
	}

	if (req.Annotate || resumed || im.opts.ForceAnnotate) && len(filenames) > 0 {
		filenames = im.annotator.Annotate(ctx, filenames, firstPositive(req.Workers, im.opts.Workers))
	}

	if req.Video {
		output, err := im.video.Assemble(ctx, firstPositive(req.FPS, im.opts.FPS))
		if err != nil {
			return nil, fmt.Errorf("failed to assemble video: %w", err)
		}
		filenames = []string{output}
	}

	if filenames == nil {
		return im.extractor.List()
	}

	logger.Info("request finished", "files", len(filenames))
	return filenames, nil
}

// List returns every materialized frame.
func (im *Imager) List() ([]string, error) {
	return im.extractor.List()
}

// Reset wipes the snapshot directory.
func (im *Imager) Reset() error {
	return im.extractor.Reset()
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
