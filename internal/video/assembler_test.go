package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/ethoimager/internal/runner"
)

type fakeEncoder struct {
	calls    []runner.Command
	exitCode int
	err      error
}

func (f *fakeEncoder) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return runner.Result{}, f.err
	}
	if f.exitCode != 0 {
		return runner.Result{ExitCode: f.exitCode}, nil
	}
	out := cmd.Args[len(cmd.Args)-1]
	return runner.Result{}, os.WriteFile(out, []byte("mp4"), 0644)
}

func TestAssembler_Command(t *testing.T) {
	va := NewAssembler("/exp/IMG_SNAPSHOTS", "/exp/ETHOSCOPE_001.db", &fakeEncoder{}, DefaultConfig(), nil, nil)

	cmd := va.Command(5)

	assert.Equal(t, "ffmpeg", cmd.Name)
	assert.Equal(t, []string{
		"-loglevel", "panic",
		"-y",
		"-framerate", "5",
		"-pattern_type", "glob",
		"-i", "/exp/IMG_SNAPSHOTS/*.jpg",
		"-c:v", "libx264",
		"/exp/IMG_SNAPSHOTS/ETHOSCOPE_001.db.mp4",
	}, cmd.Args)
}

func TestAssembler_Assemble(t *testing.T) {
	dir := t.TempDir()
	enc := &fakeEncoder{}
	va := NewAssembler(dir, "ETHOSCOPE_001.db", enc, Config{}, nil, nil)

	out, err := va.Assemble(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ETHOSCOPE_001.db.mp4"), out)
	assert.FileExists(t, out)
	require.Len(t, enc.calls, 1)
	assert.Contains(t, enc.calls[0].Args, "10")
}

func TestAssembler_NonZeroExitStillReturnsPath(t *testing.T) {
	dir := t.TempDir()
	va := NewAssembler(dir, "ETHOSCOPE_001.db", &fakeEncoder{exitCode: 1}, Config{}, nil, nil)

	out, err := va.Assemble(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, va.OutputPath(), out)
	assert.NoFileExists(t, out)
}

func TestAssembler_StartFailure(t *testing.T) {
	va := NewAssembler(t.TempDir(), "ETHOSCOPE_001.db", &fakeEncoder{err: errors.New("ffmpeg not found")}, Config{}, nil, nil)

	_, err := va.Assemble(context.Background(), 5)
	assert.Error(t, err)
}
