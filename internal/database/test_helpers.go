package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/kdimtricp/ethoimager/internal/models"
)

const fixtureSchema = `
	CREATE TABLE IF NOT EXISTS METADATA (
		field TEXT NOT NULL,
		value TEXT
	);
	CREATE TABLE IF NOT EXISTS IMG_SNAPSHOTS (
		id INTEGER,
		t INTEGER,
		img LONGBLOB
	);
`

// WriteFixture creates an archive at path the way the recording device lays
// it out. It is meant for tests in this and other packages.
func WriteFixture(path string, t0 float64, records ...models.FrameRecord) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve fixture path: %w", err)
	}
	conn, err := sql.Open(driverName, fileURI(abs, "mode=rwc"))
	if err != nil {
		return fmt.Errorf("failed to open fixture: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(fixtureSchema); err != nil {
		return fmt.Errorf("failed to create fixture tables: %w", err)
	}

	if _, err := conn.Exec(
		`INSERT INTO METADATA (field, value) VALUES ('machine_id', 'ETHOSCOPE_001'), (?, ?)`,
		referenceField, strconv.FormatFloat(t0, 'f', -1, 64),
	); err != nil {
		return fmt.Errorf("failed to insert metadata: %w", err)
	}

	for _, rec := range records {
		if _, err := conn.Exec(
			`INSERT INTO IMG_SNAPSHOTS (id, t, img) VALUES (?, ?, ?)`,
			rec.ID, rec.T, rec.Image,
		); err != nil {
			return fmt.Errorf("failed to insert frame %d: %w", rec.ID, err)
		}
	}

	return nil
}
