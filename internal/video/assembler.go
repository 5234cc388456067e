package video

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kdimtricp/ethoimager/internal/metrics"
	"github.com/kdimtricp/ethoimager/internal/models"
	"github.com/kdimtricp/ethoimager/internal/runner"
)

const (
	DefaultFPS   = 10
	DefaultCodec = "libx264"
	Extension    = ".mp4"

	toolName = "ffmpeg"
)

type Config struct {
	Command string
	Codec   string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Command: toolName,
		Codec:   DefaultCodec,
		Timeout: 30 * time.Minute,
	}
}

// Assembler encodes every frame of a snapshot directory into one video named
// after the archive.
type Assembler struct {
	cfg     Config
	dir     string
	output  string
	runner  runner.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewAssembler(dir, archiveName string, r runner.Runner, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Assembler {
	if cfg.Command == "" {
		cfg.Command = toolName
	}
	if cfg.Codec == "" {
		cfg.Codec = DefaultCodec
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		cfg:     cfg,
		dir:     dir,
		output:  filepath.Join(dir, filepath.Base(archiveName)+Extension),
		runner:  r,
		logger:  logger,
		metrics: m,
	}
}

func (va *Assembler) OutputPath() string {
	return va.output
}

// Command builds the ffmpeg invocation. The glob is expanded by ffmpeg,
// which sorts matches by name; the zero padded frame names make that
// chronological.
func (va *Assembler) Command(fps int) runner.Command {
	return runner.Command{
		Name: va.cfg.Command,
		Args: []string{
			"-loglevel", "panic",
			"-y",
			"-framerate", strconv.Itoa(fps),
			"-pattern_type", "glob",
			"-i", filepath.Join(va.dir, "*"+models.FrameExt),
			"-c:v", va.cfg.Codec,
			va.output,
		},
		Timeout: va.cfg.Timeout,
	}
}

// Assemble runs the encoder and returns the output path. A non-zero exit is
// only logged: a missing output file is the failure signal. An error is
// returned when the encoder cannot be started at all.
func (va *Assembler) Assemble(ctx context.Context, fps int) (string, error) {
	if fps <= 0 {
		fps = DefaultFPS
	}

	cmd := va.Command(fps)
	va.logger.Info("assembling video", "output", va.output, "fps", fps)

	res, err := va.runner.Run(ctx, cmd)
	if err != nil {
		va.metrics.ObserveTool(toolName, res.Duration, false)
		return "", fmt.Errorf("failed to run encoder: %w", err)
	}

	va.metrics.ObserveTool(toolName, res.Duration, res.OK())
	if !res.OK() {
		va.logger.Warn("encoder failed",
			"exit_code", res.ExitCode,
			"timed_out", res.TimedOut,
			"stderr", res.Stderr,
		)
		return va.output, nil
	}

	va.metrics.VideoBuilt()
	va.logger.Info("video assembled", "output", va.output, "duration", res.Duration)
	return va.output, nil
}
