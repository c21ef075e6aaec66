package watcher

import (
	"slices"
	"sync"
	"time"

	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

// MemoryLedger keeps processed file names for the process lifetime.
type MemoryLedger struct {
	mu    sync.Mutex
	files map[string]*models.ProcessedFile
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{files: make(map[string]*models.ProcessedFile)}
}

func (l *MemoryLedger) MarkIfNew(fileName string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.files[fileName]; exists {
		return false, nil
	}
	now := time.Now()
	l.files[fileName] = &models.ProcessedFile{
		FileName:  fileName,
		Status:    models.FileStatusDispatched,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return true, nil
}

func (l *MemoryLedger) SetStatus(fileName string, status models.FileStatus, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, exists := l.files[fileName]; exists {
		f.Status = status
		f.Detail = detail
		f.UpdatedAt = time.Now()
	}
	return nil
}

func (l *MemoryLedger) List(status models.FileStatus) ([]models.ProcessedFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	files := make([]models.ProcessedFile, 0, len(l.files))
	for _, f := range l.files {
		if status == "" || f.Status == status {
			files = append(files, *f)
		}
	}
	slices.SortFunc(files, func(a, b models.ProcessedFile) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return files, nil
}
