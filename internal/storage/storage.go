package storage

import "github.com/kdimtricp/ethoimager/internal/models"

// FrameStore holds the materialized frames of one archive.
type FrameStore interface {
	Dir() string
	Materialize(rec models.FrameRecord) (string, error)
	List() ([]string, error)
	ListRaw() ([]string, error)
	Reset() error
}
