package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
	"liyu1981.xyz/sensor-ingest-service/pkg/sink"
)

type QuarantineWriter interface {
	Append(artifact string, header []string, rows []models.RejectedRow) error
}

type AuditWriter interface {
	Append(artifact, message string) error
}

// Trail names the artifacts one processing attempt writes to.
type Trail struct {
	SourcePath         string
	FileName           string
	QuarantineArtifact string
	LogArtifact        string
}

// Pipeline runs the validation stages in a fixed order.
type Pipeline struct {
	Validator  *RowValidator
	Quarantine QuarantineWriter
	Audit      AuditWriter
	Now        func() time.Time
}

func NewPipeline(validator *RowValidator, quarantine QuarantineWriter, audit AuditWriter) *Pipeline {
	return &Pipeline{
		Validator:  validator,
		Quarantine: quarantine,
		Audit:      audit,
		Now:        time.Now,
	}
}

type stage struct {
	reason  models.RejectReason
	message string
	run     func(rows []*candidate) (kept, rejected []*candidate)
}

// RemovedPercentage is the share of rows dropped, rounded to 3 decimals.
func RemovedPercentage(before, after int) float64 {
	if before == 0 {
		return 0
	}
	p := float64(before-after) / float64(before) * 100
	return math.Round(p*1000) / 1000
}

func formatPercentage(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Run validates and cleans table. Rejected rows go to the quarantine artifact
// and every decision is written to the audit artifact. A SkipError is
// returned when the file fails a terminal gate.
func (p *Pipeline) Run(trail Trail, table *Table) (*models.CleanedBatch, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameIngestCore,
		zap.String(common.LoggerFieldIngestCategory, common.LoggerCategoryPipeline),
		zap.String("file_name", trail.FileName),
	)

	logger.Info("Validation and transformation of sensor data")

	if len(table.Header) == 0 && len(table.Records) == 0 {
		return nil, p.skip(logger, trail, models.ReasonEmptyFile, ErrEmptyInput,
			"Empty file received. Skipping the file.")
	}

	header := NormalizeHeader(table.Header)
	if err := p.audit(trail, "Updated column names to standard format: "+strings.Join(header, ",")); err != nil {
		return nil, err
	}

	if missing := MissingColumns(header); len(missing) > 0 {
		return nil, p.skip(logger, trail, models.ReasonMissingColumns,
			fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", ")),
			fmt.Sprintf("Invalid column names %v, missing %v. Skipping the file.", table.Header, missing))
	}

	if len(table.Records) == 0 {
		return nil, p.skip(logger, trail, models.ReasonEmptyFile, ErrEmptyInput,
			"Empty file received. Skipping the file.")
	}

	rows := make([]*candidate, len(table.Records))
	for i, record := range table.Records {
		values := make(map[string]string, len(header))
		for j, column := range header {
			values[column] = record[j]
		}
		line := i + 2
		if i < len(table.Lines) {
			line = table.Lines[i]
		}
		rows[i] = &candidate{raw: models.RawRow{Line: line, Values: values}}
	}
	rowsBefore := len(rows)

	v := p.Validator
	stages := []stage{
		{models.ReasonBadType, "Rows containing incorrect datatype of temperature are removed", v.CoerceTypes},
		{models.ReasonBadDate, "Rows containing invalid dates are removed", v.NormalizeDates},
		{models.ReasonMissingValue, "Rows containing missing values are removed", v.SweepMissing},
		{models.ReasonOutOfRange, "Rows containing invalid temperature readings are removed", v.CheckRange},
		{models.ReasonMissingValue, "Rows with unknown location values are removed", v.MapLocation},
		{models.ReasonDuplicate, "Duplicate rows removed", func(rows []*candidate) ([]*candidate, []*candidate) {
			return v.RemoveDuplicates(header, rows)
		}},
	}

	for _, s := range stages {
		kept, rejected := s.run(rows)
		if err := p.quarantine(trail, header, s.reason, rejected); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("%s and moved to %s (%d rows, reason %s).",
			s.message, trail.QuarantineArtifact, len(rejected), s.reason)
		if err := p.audit(trail, msg); err != nil {
			return nil, err
		}
		logger.Info("Stage completed",
			zap.String("reason", string(s.reason)),
			zap.Int("kept", len(kept)),
			zap.Int("rejected", len(rejected)),
		)
		rows = kept
	}

	batch := &models.CleanedBatch{
		Header:     header,
		Readings:   make([]models.SensorReading, len(rows)),
		SourcePath: trail.SourcePath,
		FileName:   trail.FileName,
		RowsBefore: rowsBefore,
		RowsAfter:  len(rows),
	}
	for i, c := range rows {
		batch.Readings[i] = c.finish(header)
	}

	removed := RemovedPercentage(batch.RowsBefore, batch.RowsAfter)
	if err := p.audit(trail, fmt.Sprintf(
		"Removed rows percentage due to missing and incorrect values is %s.", formatPercentage(removed))); err != nil {
		return nil, err
	}
	logger.Info("Validation completed",
		zap.Int("rows_before", batch.RowsBefore),
		zap.Int("rows_after", batch.RowsAfter),
		zap.Float64("removed_percentage", removed),
	)

	return batch, nil
}

func (p *Pipeline) skip(logger *zap.Logger, trail Trail, reason models.RejectReason, err error, msg string) error {
	logger.Info("Skipping file", zap.String("reason", string(reason)), zap.Error(err))
	if auditErr := p.audit(trail, msg); auditErr != nil {
		return auditErr
	}
	return &SkipError{FileName: trail.FileName, Reason: reason, Err: err}
}

func (p *Pipeline) audit(trail Trail, msg string) error {
	if err := p.Audit.Append(trail.LogArtifact, sink.AuditLine(p.Now(), msg)); err != nil {
		return fmt.Errorf("audit %s: %w", trail.FileName, err)
	}
	return nil
}

func (p *Pipeline) quarantine(trail Trail, header []string, reason models.RejectReason, rows []*candidate) error {
	if len(rows) == 0 {
		return nil
	}
	now := p.Now()
	rejected := common.Mapper(rows, func(c *candidate) models.RejectedRow {
		return models.RejectedRow{
			Row:        c.raw,
			Reason:     reason,
			SourceFile: trail.FileName,
			RejectedAt: now,
		}
	})
	if err := p.Quarantine.Append(trail.QuarantineArtifact, header, rejected); err != nil {
		return fmt.Errorf("quarantine %s: %w", trail.FileName, err)
	}
	return nil
}
