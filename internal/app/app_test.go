package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/ethoimager/internal/config"
	"github.com/kdimtricp/ethoimager/internal/database"
	"github.com/kdimtricp/ethoimager/internal/imager"
	"github.com/kdimtricp/ethoimager/internal/models"
	"github.com/kdimtricp/ethoimager/internal/runner"
)

type recordingRunner struct {
	names []string
}

func (r *recordingRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	r.names = append(r.names, cmd.Name)
	out := cmd.Args[len(cmd.Args)-1]
	return runner.Result{}, os.WriteFile(out, []byte(strings.Join(cmd.Args, " ")), 0644)
}

func loadConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ethoimager.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	return cfg
}

func TestApp_Open(t *testing.T) {
	cfg := loadConfig(t, "snapshots:\n  dir_name: FRAMES\nannotate:\n  always: true\n  command: magick\n  timezone: UTC\n")
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "ETHOSCOPE_001.db")
	require.NoError(t, database.WriteFixture(archivePath, 1700000000, models.FrameRecord{ID: 3, T: 2000, Image: []byte("jpeg")}))

	rr := &recordingRunner{}
	a := New(cfg, nil)
	a.Runner = rr

	im, err := a.Open(context.Background(), archivePath)
	require.NoError(t, err)

	files, err := im.Run(context.Background(), imager.Request{IDs: []int64{3}})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "FRAMES", "00003_2000.jpg")}, files)
	assert.Equal(t, []string{"magick"}, rr.names)

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "label:2023-11-14 22:13:22")
}

func TestApp_OpenMissingArchive(t *testing.T) {
	a := New(loadConfig(t, ""), nil)

	_, err := a.Open(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, database.ErrArchiveUnreadable)
}

func TestApp_CheckTools(t *testing.T) {
	cfg := loadConfig(t, "annotate:\n  command: no-such-convert-ethoimager\nvideo:\n  command: no-such-ffmpeg-ethoimager\n")

	missing := New(cfg, nil).CheckTools()
	assert.Len(t, missing, 2)
}
