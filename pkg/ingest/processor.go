package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
	"liyu1981.xyz/sensor-ingest-service/pkg/sink"
)

// OutputWriter persists the result of a processed file.
type OutputWriter interface {
	Write(batch *models.CleanedBatch, metrics []models.AggregateMetric) error
}

// FileProcessor handles a single file end to end: wait until readable, read,
// validate, aggregate and write outputs.
type FileProcessor struct {
	Pipeline   *Pipeline
	Aggregator *Aggregator
	Outputs    []OutputWriter

	ReadyPollInterval time.Duration
	ReadyTimeout      time.Duration

	NewToken func() string
	Now      func() time.Time
}

type ProcessorOpts struct {
	ReadyPollInterval time.Duration
	ReadyTimeout      time.Duration
}

func NewFileProcessor(pipeline *Pipeline, aggregator *Aggregator, opts ProcessorOpts, outputs ...OutputWriter) *FileProcessor {
	return &FileProcessor{
		Pipeline:          pipeline,
		Aggregator:        aggregator,
		Outputs:           outputs,
		ReadyPollInterval: opts.ReadyPollInterval,
		ReadyTimeout:      opts.ReadyTimeout,
		NewToken:          func() string { return uuid.NewString()[:8] },
		Now:               time.Now,
	}
}

// NewTrail names the artifacts for one processing attempt of path.
func (p *FileProcessor) NewTrail(root, path string) Trail {
	fileName := filepath.Base(path)
	now := p.Now()
	token := p.NewToken()
	return Trail{
		SourcePath:         root,
		FileName:           fileName,
		QuarantineArtifact: sink.QuarantineArtifactName(fileName, now, token),
		LogArtifact:        sink.LogArtifactName(fileName, now, token),
	}
}

// Process runs one attempt for the file at path found under the watch root.
func (p *FileProcessor) Process(ctx context.Context, root, path string) error {
	logger := common.GetLoggerWith(
		common.LoggerNameIngestCore,
		zap.String(common.LoggerFieldIngestCategory, common.LoggerCategoryProcessor),
		zap.String("path", path),
	)

	logger.Info("File has been created")

	if err := WaitReadable(ctx, path, p.ReadyPollInterval, p.ReadyTimeout); err != nil {
		return err
	}

	table, err := ReadTableFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	trail := p.NewTrail(root, path)
	batch, err := p.Pipeline.Run(trail, table)
	if err != nil {
		return err
	}

	if len(batch.Readings) == 0 {
		logger.Info("No rows left after validation, no aggregate written",
			zap.Int("rows_before", batch.RowsBefore))
		return nil
	}

	metrics, err := p.Aggregator.Aggregate(batch, root)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", trail.FileName, err)
	}

	for _, out := range p.Outputs {
		if err := out.Write(batch, metrics); err != nil {
			return fmt.Errorf("write outputs for %s: %w", trail.FileName, err)
		}
	}

	logger.Info("File processed",
		zap.Int("rows_after", batch.RowsAfter),
		zap.Int("groups", len(metrics)),
	)
	return nil
}
