package db

import (
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

func GetInstance(dialector gorm.Dialector) *DB {
	var logger = common.GetLogger()
	once.Do(func() {
		conn, err := gorm.Open(dialector, &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

		instance = &DB{Conn: conn}

		if isSharedMemory(dialector) {
			// shared-cache connections fail with SQLITE_LOCKED instead of waiting
			// on busy_timeout, so the in-memory database gets one connection.
			sqlDB, err := conn.DB()
			if err != nil {
				log.Fatal("Failed to get sql.DB:", err)
			}
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
			sqlDB.SetConnMaxLifetime(0)
		}

		err = instance.Conn.AutoMigrate(&models.ProcessedFile{}, &models.AggregateMetric{}, &models.StoredReading{})
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}

		logger.Info("Database migration completed")

		if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			log.Fatal("Failed to set sqlite journal mode", err)
		}

		if err := instance.Conn.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			log.Fatal("Failed to set sqlite busy timeout", err)
		}
	})
	return instance
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyIngestDbPath); !found {
		dbPath = "ingest.db"
	}
	return UseSqlitePathDialector(dbPath)
}

func UseSqlitePathDialector(dbPath string) gorm.Dialector {
	return sqlite.Open(dbPath)
}

const memoryDSN = "file::memory:?cache=shared"

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(memoryDSN)
}

func isSharedMemory(dialector gorm.Dialector) bool {
	d, ok := dialector.(*sqlite.Dialector)
	return ok && strings.Contains(d.DSN, ":memory:")
}
