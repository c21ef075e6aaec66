package sink

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

// CSVOutput writes the aggregate artifact for each processed file.
type CSVOutput struct {
	Root string
}

func NewCSVOutput(root string) *CSVOutput {
	return &CSVOutput{Root: root}
}

func AggregateArtifactName(fileName string) string {
	return fmt.Sprintf("%s_aggregated_metrics.csv", fileName)
}

// Write replaces {Root}/{file_name}_aggregated_metrics.csv with metrics. The
// batch is not written; readings are persisted by the database store.
func (o *CSVOutput) Write(batch *models.CleanedBatch, metrics []models.AggregateMetric) error {
	if err := os.MkdirAll(o.Root, 0o755); err != nil {
		return fmt.Errorf("output: create root: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	if len(metrics) == 0 {
		if err := enc.EncodeHeader(models.AggregateMetric{}); err != nil {
			return fmt.Errorf("output: encode header: %w", err)
		}
	}
	for _, m := range metrics {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("output: encode metric %d: %w", m.RawID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("output: flush: %w", err)
	}

	path := filepath.Join(o.Root, AggregateArtifactName(batch.FileName))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("output: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("output: rename %q: %w", tmp, err)
	}
	return nil
}
