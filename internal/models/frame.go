package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	FrameExt  = ".jpg"
	rawMarker = "_raw"
)

var ErrBadFrameName = errors.New("not a frame file name")

// FrameRecord is one row of the archive's IMG_SNAPSHOTS table. T is the
// offset in milliseconds from the archive reference time.
type FrameRecord struct {
	ID    int64
	T     int64
	Image []byte
}

// FrameName identifies a materialized frame on disk.
type FrameName struct {
	ID  int64
	T   int64
	Raw bool
}

// RawName returns the file name used before annotation. The id is zero
// padded so lexicographic order follows id order.
func RawName(id, t int64) string {
	return fmt.Sprintf("%05d_%d%s%s", id, t, rawMarker, FrameExt)
}

// LabeledName returns the file name used once the time label is burned in.
func LabeledName(id, t int64) string {
	return fmt.Sprintf("%05d_%d%s", id, t, FrameExt)
}

func (n FrameName) String() string {
	if n.Raw {
		return RawName(n.ID, n.T)
	}
	return LabeledName(n.ID, n.T)
}

// ParseFrameName recovers id and t from a raw or labeled frame file name.
// Directories in name are ignored.
func ParseFrameName(name string) (FrameName, error) {
	base := filepath.Base(name)
	stem, ok := strings.CutSuffix(base, FrameExt)
	if !ok {
		return FrameName{}, fmt.Errorf("%w: %s", ErrBadFrameName, base)
	}

	var fn FrameName
	stem, fn.Raw = strings.CutSuffix(stem, rawMarker)

	idPart, tPart, ok := strings.Cut(stem, "_")
	if !ok {
		return FrameName{}, fmt.Errorf("%w: %s", ErrBadFrameName, base)
	}

	var err error
	if fn.ID, err = strconv.ParseInt(idPart, 10, 64); err != nil {
		return FrameName{}, fmt.Errorf("%w: %s: %v", ErrBadFrameName, base, err)
	}
	if fn.T, err = strconv.ParseInt(tPart, 10, 64); err != nil {
		return FrameName{}, fmt.Errorf("%w: %s: %v", ErrBadFrameName, base, err)
	}

	return fn, nil
}

// LabeledPath maps a raw frame path to the path of its labeled counterpart.
// Only the base name is rewritten.
func LabeledPath(rawPath string) string {
	dir, base := filepath.Split(rawPath)
	if stem, ok := strings.CutSuffix(base, rawMarker+FrameExt); ok {
		return dir + stem + FrameExt
	}
	return dir + strings.Replace(base, rawMarker, "", 1)
}
