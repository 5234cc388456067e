package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kdimtricp/ethoimager/internal/models"
)

// ErrArchiveUnreadable wraps every failure to open or query an archive.
var ErrArchiveUnreadable = errors.New("archive unreadable")

const (
	driverName = "sqlite3"

	metadataQuery = `SELECT field, value FROM METADATA`
	framesQuery   = `SELECT id, t, img FROM IMG_SNAPSHOTS`

	referenceField = "date_time"
)

type opener func(ctx context.Context) (*sql.DB, error)

// Archive is one recording device's SQLite file. No connection is held
// between calls; every query opens and closes its own read-only handle.
type Archive struct {
	path   string
	t0     float64
	open   opener
	logger *slog.Logger
}

// OpenArchive checks the file exists and reads the reference time once.
func OpenArchive(ctx context.Context, path string, logger *slog.Logger) (*Archive, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveUnreadable, path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnreadable, err)
	}

	return newArchive(ctx, abs, readOnlyOpener(abs), logger)
}

func newArchive(ctx context.Context, path string, open opener, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Archive{path: path, open: open, logger: logger}

	t0, err := a.readReferenceTime(ctx)
	if err != nil {
		return nil, err
	}
	a.t0 = t0
	logger.Debug("archive opened", "path", path, "t0", t0)

	return a, nil
}

func readOnlyOpener(path string) opener {
	dsn := fileURI(path, "mode=ro")
	return func(ctx context.Context) (*sql.DB, error) {
		conn, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}
		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// fileURI escapes path so characters such as '?', '#' and '%' in a file
// name reach SQLite intact.
func fileURI(path, query string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: query}).String()
}

func (a *Archive) Path() string {
	return a.path
}

// T0 is the reference time in seconds since the epoch.
func (a *Archive) T0() float64 {
	return a.t0
}

// Reference returns T0 as a time.Time with millisecond precision.
func (a *Archive) Reference() time.Time {
	return time.UnixMilli(int64(math.Round(a.t0 * 1000)))
}

func (a *Archive) readReferenceTime(ctx context.Context) (float64, error) {
	conn, err := a.open(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open %s: %v", ErrArchiveUnreadable, a.path, err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, metadataQuery)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to query metadata: %v", ErrArchiveUnreadable, err)
	}
	defer rows.Close()

	var t0 float64
	for rows.Next() {
		var field, value sql.NullString
		if err := rows.Scan(&field, &value); err != nil {
			return 0, fmt.Errorf("%w: failed to scan metadata: %v", ErrArchiveUnreadable, err)
		}
		if field.String != referenceField {
			continue
		}
		t0, err = strconv.ParseFloat(value.String, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid %s %q: %v", ErrArchiveUnreadable, referenceField, value.String, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%w: failed to read metadata: %v", ErrArchiveUnreadable, err)
	}

	return t0, nil
}

// Frames streams every IMG_SNAPSHOTS row matching where to fn. An error
// returned by fn stops the scan and is returned unchanged.
func (a *Archive) Frames(ctx context.Context, where string, fn func(models.FrameRecord) error) error {
	conn, err := a.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", ErrArchiveUnreadable, a.path, err)
	}
	defer conn.Close()

	query := framesQuery
	if where != "" {
		query += " WHERE " + where
	}
	a.logger.Debug("querying frames", "query", query)

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: failed to query frames: %v", ErrArchiveUnreadable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.FrameRecord
		if err := rows.Scan(&rec.ID, &rec.T, &rec.Image); err != nil {
			return fmt.Errorf("%w: failed to scan frame: %v", ErrArchiveUnreadable, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: failed to read frames: %v", ErrArchiveUnreadable, err)
	}

	return nil
}
