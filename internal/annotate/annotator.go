// Package annotate burns a human-readable timestamp banner into raw frames
// using the ImageMagick convert tool, spread over a fixed pool of workers.
package annotate

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kdimtricp/ethoimager/internal/metrics"
	"github.com/kdimtricp/ethoimager/internal/models"
	"github.com/kdimtricp/ethoimager/internal/runner"
)

const (
	DefaultWorkers = 4
	LabelLayout    = "2006-01-02 15:04:05"

	toolName = "convert"

	// Hidden and still a .jpg so convert picks the output format from it.
	tempPattern = ".label-*" + models.FrameExt
)

type Config struct {
	Command    string
	PointSize  int
	Font       string
	Background string
	Timeout    time.Duration
	// Location the label is rendered in; nil means local time.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		Command:    toolName,
		PointSize:  50,
		Font:       "FreeMono",
		Background: "Khaki",
		Timeout:    time.Minute,
	}
}

type Annotator struct {
	cfg       Config
	reference time.Time
	dir       string
	runner    runner.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewAnnotator labels frames of the snapshot directory dir relative to the
// archive reference time.
func NewAnnotator(reference time.Time, dir string, r runner.Runner, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Annotator {
	defaults := DefaultConfig()
	if cfg.Command == "" {
		cfg.Command = defaults.Command
	}
	if cfg.PointSize <= 0 {
		cfg.PointSize = defaults.PointSize
	}
	if cfg.Font == "" {
		cfg.Font = defaults.Font
	}
	if cfg.Background == "" {
		cfg.Background = defaults.Background
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	return &Annotator{
		cfg:       cfg,
		reference: reference,
		dir:       dir,
		runner:    r,
		logger:    logger,
		metrics:   m,
	}
}

// Label is the text burned into the frame taken t milliseconds after the
// reference time.
func (a *Annotator) Label(t int64) string {
	return a.reference.Add(time.Duration(t) * time.Millisecond).In(a.cfg.Location).Format(LabelLayout)
}

// Command builds the convert invocation stacking the label above the frame.
func (a *Annotator) Command(rawPath, labeledPath, label string) runner.Command {
	return runner.Command{
		Name: a.cfg.Command,
		Args: []string{
			rawPath,
			"-pointsize", strconv.Itoa(a.cfg.PointSize),
			"-font", a.cfg.Font,
			"-background", a.cfg.Background,
			"label:" + label,
			"+swap",
			"-gravity", "Center",
			"-append",
			labeledPath,
		},
		Timeout: a.cfg.Timeout,
	}
}

// Annotate labels every raw frame using workers goroutines and blocks until
// all of them were attempted. It returns the labeled path expected for each
// input, in input order, whether or not labeling succeeded.
func (a *Annotator) Annotate(ctx context.Context, rawPaths []string, workers int) []string {
	if len(rawPaths) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(rawPaths) {
		workers = len(rawPaths)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range jobs {
				if ctx.Err() != nil {
					continue
				}
				a.annotateFrame(ctx, raw)
			}
		}()
	}

	for _, raw := range rawPaths {
		jobs <- raw
	}
	close(jobs)
	wg.Wait()

	labeled := make([]string, len(rawPaths))
	for i, raw := range rawPaths {
		labeled[i] = models.LabeledPath(raw)
	}

	a.logger.Info("annotation finished", "frames", len(rawPaths), "workers", workers)
	return labeled
}

func (a *Annotator) annotateFrame(ctx context.Context, rawPath string) {
	logger := a.logger.With("frame", filepath.Base(rawPath))

	fn, err := models.ParseFrameName(rawPath)
	if err != nil || !fn.Raw {
		logger.Warn("skipping file that is not a raw frame", "path", rawPath)
		a.metrics.FrameSkipped(metrics.SkipInvalid)
		return
	}
	// The time offset comes from the file name, so a frame copied in from
	// another archive would be labeled against the wrong reference time.
	if !a.owns(rawPath) {
		logger.Warn("skipping frame outside the snapshot directory", "path", rawPath, "dir", a.dir)
		a.metrics.FrameSkipped(metrics.SkipInvalid)
		return
	}

	labeledPath := models.LabeledPath(rawPath)
	if _, err := os.Stat(labeledPath); err == nil {
		logger.Debug("frame already labeled")
		a.metrics.FrameSkipped(metrics.SkipExists)
		return
	}

	label := a.Label(fn.T)

	// convert writes to a private name so a failing worker never touches a
	// labeled file another worker already produced for the same frame.
	tmpPath, err := a.tempOutput()
	if err != nil {
		logger.Error("failed to create labeling output", "error", err)
		a.fail(logger, labeledPath, "", runner.Result{})
		return
	}
	cmd := a.Command(rawPath, tmpPath, label)

	res, err := a.runner.Run(ctx, cmd)
	if err != nil {
		logger.Error("failed to run labeling tool", "command", cmd.Name, "error", err)
		a.fail(logger, labeledPath, tmpPath, res)
		return
	}
	if !res.OK() {
		logger.Warn("labeling tool failed",
			"exit_code", res.ExitCode,
			"timed_out", res.TimedOut,
			"stderr", res.Stderr,
		)
		a.fail(logger, labeledPath, tmpPath, res)
		return
	}
	if info, err := os.Stat(tmpPath); err != nil || info.Size() == 0 {
		logger.Warn("labeling tool produced no output", "path", tmpPath)
		a.fail(logger, labeledPath, tmpPath, res)
		return
	}

	if err := os.Rename(tmpPath, labeledPath); err != nil {
		logger.Error("failed to move labeled frame into place", "error", err)
		a.fail(logger, labeledPath, tmpPath, res)
		return
	}

	if err := os.Remove(rawPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove raw frame", "error", err)
	}
	a.metrics.ObserveTool(toolName, res.Duration, true)
	a.metrics.FrameAnnotated()
	logger.Debug("frame labeled", "label", label, "duration", res.Duration)
}

func (a *Annotator) tempOutput() (string, error) {
	f, err := os.CreateTemp(a.dir, tempPattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// fail drops this worker's output only. If another worker labeled the frame
// meanwhile the attempt counts as a skip, otherwise the frame stays in the
// resumable raw-but-not-labeled state.
func (a *Annotator) fail(logger *slog.Logger, labeledPath, tmpPath string, res runner.Result) {
	if tmpPath != "" {
		os.Remove(tmpPath)
	}
	a.metrics.ObserveTool(toolName, res.Duration, false)

	if _, err := os.Stat(labeledPath); err == nil {
		logger.Debug("frame labeled concurrently")
		a.metrics.FrameSkipped(metrics.SkipExists)
		return
	}
	logger.Warn("frame left raw")
	a.metrics.AnnotationFailed()
}

func (a *Annotator) owns(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == a.dir
}
