package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kdimtricp/ethoimager/internal/annotate"
	"github.com/kdimtricp/ethoimager/internal/config"
	"github.com/kdimtricp/ethoimager/internal/database"
	"github.com/kdimtricp/ethoimager/internal/extract"
	"github.com/kdimtricp/ethoimager/internal/imager"
	"github.com/kdimtricp/ethoimager/internal/metrics"
	"github.com/kdimtricp/ethoimager/internal/runner"
	"github.com/kdimtricp/ethoimager/internal/storage"
	"github.com/kdimtricp/ethoimager/internal/video"
)

// App holds the process-wide dependencies and builds one Imager per archive.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Runner  runner.Runner
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Runner:  runner.Exec{},
	}
}

// Open reads the archive at path and wires an Imager over its snapshot
// directory.
func (a *App) Open(ctx context.Context, path string) (*imager.Imager, error) {
	logger := a.Logger.With("archive", path)

	archive, err := database.OpenArchive(ctx, path, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.ForArchive(archive.Path(), a.Config.Snapshots.DirName)
	if err != nil {
		return nil, err
	}

	loc, err := a.Config.Annotate.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to configure annotation: %w", err)
	}

	annotator := annotate.NewAnnotator(archive.Reference(), store.Dir(), a.Runner, annotate.Config{
		Command:    a.Config.Annotate.Command,
		PointSize:  a.Config.Annotate.PointSize,
		Font:       a.Config.Annotate.Font,
		Background: a.Config.Annotate.Background,
		Timeout:    a.Config.Annotate.Timeout,
		Location:   loc,
	}, logger, a.Metrics)

	assembler := video.NewAssembler(store.Dir(), archive.Path(), a.Runner, video.Config{
		Command: a.Config.Video.Command,
		Codec:   a.Config.Video.Codec,
		Timeout: a.Config.Video.Timeout,
	}, logger, a.Metrics)

	extractor := extract.NewFrameExtractor(archive, store, logger, a.Metrics)

	return imager.New(extractor, annotator, assembler, imager.Options{
		ForceAnnotate: a.Config.Annotate.Always,
		Workers:       a.Config.Annotate.Workers,
		FPS:           a.Config.Video.FPS,
	}, logger), nil
}

// CheckTools reports the external tools missing from PATH.
func (a *App) CheckTools() []error {
	var missing []error
	for _, name := range []string{a.Config.Annotate.Command, a.Config.Video.Command} {
		if _, err := runner.LookPath(name); err != nil {
			missing = append(missing, err)
		}
	}
	return missing
}
