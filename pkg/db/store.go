package db

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

// Store persists provenance-stamped readings and aggregate metrics.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Write stores the batch and its metrics in one transaction.
func (s *Store) Write(batch *models.CleanedBatch, metrics []models.AggregateMetric) error {
	logger := common.GetLoggerWith(
		common.LoggerNameIngestCore,
		zap.String(common.LoggerFieldIngestCategory, common.LoggerCategoryStore),
		zap.String("file_name", batch.FileName),
	)

	readings := common.Mapper(batch.Readings, models.NewStoredReading)
	rows := append([]models.AggregateMetric(nil), metrics...)

	err := s.db.Conn.Transaction(func(tx *gorm.DB) error {
		if len(readings) > 0 {
			if err := tx.CreateInBatches(&readings, 500).Error; err != nil {
				return err
			}
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err == nil {
		logger.Info("Stored readings and metrics",
			zap.Int("readings", len(readings)), zap.Int("metrics", len(rows)))
	}
	return err
}

func (s *Store) GetFileMetrics(fileName string) ([]models.AggregateMetric, error) {
	var metrics []models.AggregateMetric
	err := s.db.Conn.
		Where("file_name = ?", fileName).
		Order("processed_time desc, raw_id asc").
		Find(&metrics).Error
	return metrics, err
}

func (s *Store) CountReadings(fileName string) (int64, error) {
	var count int64
	err := s.db.Conn.Model(&models.StoredReading{}).Where("file_name = ?", fileName).Count(&count).Error
	return count, err
}
