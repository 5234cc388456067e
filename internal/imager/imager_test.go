package imager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/ethoimager/internal/criteria"
	"github.com/kdimtricp/ethoimager/internal/models"
)

type mockExtractor struct {
	preds  []*criteria.Predicate
	result []string
	listed []string
	raw    []string
	err    error
	resets int
}

func (m *mockExtractor) Extract(_ context.Context, pred *criteria.Predicate) ([]string, error) {
	m.preds = append(m.preds, pred)
	if m.err != nil {
		return nil, m.err
	}
	if pred == nil {
		return nil, nil
	}
	return m.result, nil
}

func (m *mockExtractor) List() ([]string, error)    { return m.listed, nil }
func (m *mockExtractor) ListRaw() ([]string, error) { return m.raw, nil }
func (m *mockExtractor) Reset() error               { m.resets++; return nil }

type mockAnnotator struct {
	calls   [][]string
	workers []int
}

func (m *mockAnnotator) Annotate(_ context.Context, raw []string, workers int) []string {
	m.calls = append(m.calls, raw)
	m.workers = append(m.workers, workers)
	out := make([]string, len(raw))
	for i, p := range raw {
		out[i] = models.LabeledPath(p)
	}
	return out
}

type mockVideo struct {
	fps []int
	err error
}

func (m *mockVideo) Assemble(_ context.Context, fps int) (string, error) {
	m.fps = append(m.fps, fps)
	if m.err != nil {
		return "", m.err
	}
	return "/snap/ETHOSCOPE_001.db.mp4", nil
}

func TestRun_InvalidFilterAbortsBeforeIO(t *testing.T) {
	ext := &mockExtractor{}
	im := New(ext, &mockAnnotator{}, &mockVideo{}, Options{}, nil)

	_, err := im.Run(context.Background(), Request{IDs: []int64{}})

	assert.ErrorIs(t, err, criteria.ErrInvalidFilterValue)
	assert.Empty(t, ext.preds)
}

func TestRun_ExtractOnly(t *testing.T) {
	ext := &mockExtractor{result: []string{"/snap/00003_2000_raw.jpg"}}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{}, nil)

	files, err := im.Run(context.Background(), Request{IDs: []int64{3}})
	require.NoError(t, err)

	assert.Equal(t, []string{"/snap/00003_2000_raw.jpg"}, files)
	assert.Equal(t, "id IN (3)", ext.preds[0].String())
	assert.Empty(t, ann.calls)
}

func TestRun_Annotate(t *testing.T) {
	ext := &mockExtractor{result: []string{"/snap/00003_2000_raw.jpg"}}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{Workers: 6}, nil)

	files, err := im.Run(context.Background(), Request{IDs: []int64{3}, Annotate: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"/snap/00003_2000.jpg"}, files)
	assert.Equal(t, []int{6}, ann.workers)
}

func TestRun_ForceAnnotate(t *testing.T) {
	ext := &mockExtractor{result: []string{"/snap/00001_1_raw.jpg"}}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{ForceAnnotate: true}, nil)

	_, err := im.Run(context.Background(), Request{Times: []int64{1}, Workers: 2})
	require.NoError(t, err)

	require.Len(t, ann.calls, 1)
	assert.Equal(t, []int{2}, ann.workers)
}

func TestRun_AnnotateSkippedWithoutFrames(t *testing.T) {
	ext := &mockExtractor{result: []string{}}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{ForceAnnotate: true}, nil)

	files, err := im.Run(context.Background(), Request{IDs: []int64{99}})
	require.NoError(t, err)

	assert.Empty(t, files)
	assert.Empty(t, ann.calls)
}

func TestRun_NoFilterListsSnapshots(t *testing.T) {
	ext := &mockExtractor{listed: []string{"/snap/00001_1.jpg", "/snap/00002_2.jpg"}}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{ForceAnnotate: true}, nil)

	files, err := im.Run(context.Background(), Request{Annotate: true})
	require.NoError(t, err)

	assert.Equal(t, ext.listed, files)
	require.Len(t, ext.preds, 1)
	assert.Nil(t, ext.preds[0])
	assert.Empty(t, ann.calls)
}

func TestRun_Resume(t *testing.T) {
	ext := &mockExtractor{raw: []string{"/snap/00004_40_raw.jpg"}}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{}, nil)

	files, err := im.Run(context.Background(), Request{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"/snap/00004_40.jpg"}, files)
}

func TestRun_ResumeIgnoredWithFilter(t *testing.T) {
	ext := &mockExtractor{
		result: []string{"/snap/00001_10_raw.jpg"},
		raw:    []string{"/snap/00004_40_raw.jpg"},
	}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{}, nil)

	files, err := im.Run(context.Background(), Request{IDs: []int64{1}, Resume: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"/snap/00001_10_raw.jpg"}, files)
	assert.Empty(t, ann.calls)
}

func TestRun_ResumeWithNothingLeftListsSnapshots(t *testing.T) {
	ext := &mockExtractor{raw: []string{}, listed: []string{"/snap/00004_40.jpg"}}
	ann := &mockAnnotator{}
	im := New(ext, ann, &mockVideo{}, Options{}, nil)

	files, err := im.Run(context.Background(), Request{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, ext.listed, files)
	assert.Empty(t, ann.calls)
}

func TestRun_VideoReplacesResult(t *testing.T) {
	ext := &mockExtractor{result: []string{"/snap/00001_1_raw.jpg"}}
	vid := &mockVideo{}
	im := New(ext, &mockAnnotator{}, vid, Options{FPS: 25}, nil)

	files, err := im.Run(context.Background(), Request{IDs: []int64{1}, Annotate: true, Video: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/snap/ETHOSCOPE_001.db.mp4"}, files)
	assert.Equal(t, []int{25}, vid.fps)

	_, err = im.Run(context.Background(), Request{Video: true, FPS: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{25, 5}, vid.fps)
}

func TestRun_ExtractionFailureIsFatal(t *testing.T) {
	boom := errors.New("archive unreadable")
	im := New(&mockExtractor{err: boom}, &mockAnnotator{}, &mockVideo{}, Options{}, nil)

	_, err := im.Run(context.Background(), Request{IDs: []int64{1}})
	assert.ErrorIs(t, err, boom)
}

func TestRun_VideoFailureIsFatal(t *testing.T) {
	boom := errors.New("ffmpeg not found")
	im := New(&mockExtractor{}, &mockAnnotator{}, &mockVideo{err: boom}, Options{}, nil)

	_, err := im.Run(context.Background(), Request{Video: true})
	assert.ErrorIs(t, err, boom)
}

func TestReset(t *testing.T) {
	ext := &mockExtractor{}
	im := New(ext, &mockAnnotator{}, &mockVideo{}, Options{}, nil)

	require.NoError(t, im.Reset())
	assert.Equal(t, 1, ext.resets)
}
