package db

import (
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

// Ledger is the durable dedup guard. File names survive restarts, so a file
// seen by an earlier run is not processed again.
type Ledger struct {
	db *DB
	// sqlite has a single writer; the mutex keeps check-and-mark from
	// surfacing lock errors under concurrent events.
	mu sync.Mutex
}

func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// MarkIfNew records fileName as dispatched and reports whether it was absent.
func (l *Ledger) MarkIfNew(fileName string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := models.ProcessedFile{FileName: fileName, Status: models.FileStatusDispatched}
	res := l.db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_name"}},
		DoNothing: true,
	}).Create(&record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (l *Ledger) SetStatus(fileName string, status models.FileStatus, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	logger := common.GetLoggerWith(
		common.LoggerNameWatcher,
		zap.String(common.LoggerFieldIngestCategory, common.LoggerCategoryLedger),
	)

	err := l.db.Conn.Model(&models.ProcessedFile{}).
		Where("file_name = ?", fileName).
		Updates(map[string]any{"status": status, "detail": detail}).Error

	if err == nil {
		logger.Info("Updated file status",
			zap.String("file_name", fileName), zap.String("status", string(status)))
	}
	return err
}

// List returns ledger entries, newest first, optionally filtered by status.
func (l *Ledger) List(status models.FileStatus) ([]models.ProcessedFile, error) {
	var files []models.ProcessedFile
	q := l.db.Conn.Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&files).Error
	return files, err
}
