package watcher

import (
	"context"

	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks

// Processor handles one attempt at a newly arrived file.
type Processor interface {
	Process(ctx context.Context, root, path string) error
}

// Ledger is the dedup guard. MarkIfNew must check and insert atomically.
type Ledger interface {
	MarkIfNew(fileName string) (bool, error)
	SetStatus(fileName string, status models.FileStatus, detail string) error
	List(status models.FileStatus) ([]models.ProcessedFile, error)
}

// FailureLog receives one line per terminal failure.
type FailureLog interface {
	Append(artifact, message string) error
}
