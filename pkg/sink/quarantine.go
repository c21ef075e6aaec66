package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

// Columns appended after the source columns in every quarantine artifact.
var quarantineTrailer = []string{"reject_reason", "source_file", "rejected_at"}

const quarantineTimeLayout = "2006-01-02 15:04:05"

// Quarantine is the append-only store for rejected rows, one CSV artifact per
// source file. Rows are never rewritten or deleted.
type Quarantine struct {
	Root  string
	locks pathLocks
}

func NewQuarantine(root string) *Quarantine {
	return &Quarantine{Root: root}
}

// Append writes rows to artifact. header lists the source columns; the header
// line is only written when the artifact does not exist yet.
func (q *Quarantine) Append(artifact string, header []string, rows []models.RejectedRow) error {
	if len(rows) == 0 {
		return nil
	}

	if err := os.MkdirAll(q.Root, 0o755); err != nil {
		return fmt.Errorf("quarantine: create root: %w", err)
	}

	path := filepath.Join(q.Root, artifact)
	unlock := q.locks.lock(path)
	defer unlock()

	_, statErr := os.Stat(path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("quarantine: open %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(append(append([]string{}, header...), quarantineTrailer...)); err != nil {
			return fmt.Errorf("quarantine: write header: %w", err)
		}
	}

	for _, r := range rows {
		record := append(r.Row.Record(header),
			string(r.Reason),
			r.SourceFile,
			r.RejectedAt.Format(quarantineTimeLayout),
		)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("quarantine: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// QuarantineArtifactName builds the per-invocation quarantine artifact name.
func QuarantineArtifactName(fileName string, ts time.Time, token string) string {
	return fmt.Sprintf("%s_quarantine_%s_%s.csv", fileName, ts.Format("2006-01-02 150405"), token)
}

// LogArtifactName builds the per-invocation audit log artifact name.
func LogArtifactName(fileName string, ts time.Time, token string) string {
	return fmt.Sprintf("%s_log_%s_%s.log", fileName, ts.Format("2006-01-02 150405"), token)
}

// ErrorArtifactName is the daily terminal-failure log.
func ErrorArtifactName(ts time.Time) string {
	return fmt.Sprintf("error_%s.log", ts.Format("2006-01-02"))
}
