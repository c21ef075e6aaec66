package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
	"liyu1981.xyz/sensor-ingest-service/pkg/sink"
)

// Dispatcher watches Root and hands every newly created file to its own
// worker goroutine, at most once per file name.
type Dispatcher struct {
	Root      string
	Processor Processor
	Retrier   *Retrier
	Ledger    Ledger
	Failures  FailureLog
	// IsSkip reports whether a final error is a deliberate skip rather than
	// a failure.
	IsSkip func(error) bool
	Now    func() time.Time

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

type DispatcherOpts struct {
	Root      string
	Processor Processor
	Retrier   *Retrier
	Ledger    Ledger
	Failures  FailureLog
	IsSkip    func(error) bool
}

func NewDispatcher(opts DispatcherOpts) *Dispatcher {
	return &Dispatcher{
		Root:      opts.Root,
		Processor: opts.Processor,
		Retrier:   opts.Retrier,
		Ledger:    opts.Ledger,
		Failures:  opts.Failures,
		IsSkip:    opts.IsSkip,
		Now:       time.Now,
	}
}

func (d *Dispatcher) logger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameWatcher,
		zap.String(common.LoggerFieldIngestCategory, common.LoggerCategoryDispatch),
	)
}

// Run watches Root and its subdirectories until ctx is done. In-flight
// workers are not waited for; call Wait after Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	d.watcher = w

	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return fmt.Errorf("create watch root: %w", err)
	}
	if err := d.watchTree(d.Root); err != nil {
		return err
	}

	logger := d.logger()
	logger.Info("Watching for new files", zap.String("root", d.Root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watcher stopped")
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			d.HandleEvent(ctx, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (d *Dispatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if err := d.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// HandleEvent applies the dedup guard to a create event and starts a worker
// for a new file. A new directory is watched and the files already inside it
// are dispatched. It reports whether a worker was started.
func (d *Dispatcher) HandleEvent(ctx context.Context, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) {
		return false
	}

	logger := d.logger().With(zap.String("path", event.Name))

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if d.watcher != nil {
			if err := d.watchTree(event.Name); err != nil {
				logger.Warn("Could not watch new directory", zap.Error(err))
			}
		}
		return d.dispatchExisting(ctx, event.Name)
	}

	fileName := filepath.Base(event.Name)
	fresh, err := d.Ledger.MarkIfNew(fileName)
	if err != nil {
		// the ledger call is retried by the worker so the file is not lost
		logger.Warn("Dedup check failed, retrying in worker", zap.Error(err))
		d.wg.Add(1)
		go d.markAndWork(ctx, event.Name, fileName)
		return true
	}
	if !fresh {
		logger.Info("File already processed, skipping", zap.String("file_name", fileName))
		return false
	}

	d.wg.Add(1)
	go d.work(ctx, event.Name, fileName)
	return true
}

// dispatchExisting hands every file under dir to HandleEvent. Files that
// also produce their own create event are caught by the dedup guard.
func (d *Dispatcher) dispatchExisting(ctx context.Context, dir string) bool {
	started := false
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && d.HandleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create}) {
			started = true
		}
		return nil
	})
	if err != nil {
		d.logger().Warn("Could not scan new directory", zap.String("path", dir), zap.Error(err))
	}
	return started
}

// Wait blocks until all dispatched workers have returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) markAndWork(ctx context.Context, path, fileName string) {
	defer d.wg.Done()

	logger := d.logger().With(zap.String("path", path), zap.String("file_name", fileName))

	var fresh bool
	err := d.Retrier.Do(ctx, "dedup "+fileName, func(ctx context.Context) error {
		var err error
		fresh, err = d.Ledger.MarkIfNew(fileName)
		return err
	})
	switch {
	case err != nil && ctx.Err() != nil:
		logger.Info("Dedup check interrupted", zap.Error(err))
		return
	case err != nil:
		logger.Error("Dedup check failed after retries, file not dispatched", zap.Error(err))
		d.logFailure(path, err)
		return
	case !fresh:
		logger.Info("File already processed, skipping")
		return
	}

	d.process(ctx, path, fileName)
}

func (d *Dispatcher) work(ctx context.Context, path, fileName string) {
	defer d.wg.Done()
	d.process(ctx, path, fileName)
}

func (d *Dispatcher) process(ctx context.Context, path, fileName string) {
	logger := d.logger().With(zap.String("path", path), zap.String("file_name", fileName))

	err := d.Retrier.Do(ctx, fileName, func(ctx context.Context) error {
		return d.Processor.Process(ctx, d.Root, path)
	})

	status, detail := models.FileStatusProcessed, ""
	switch {
	case err == nil:
		logger.Info("File processed")
	case d.IsSkip != nil && d.IsSkip(err):
		status, detail = models.FileStatusSkipped, err.Error()
		logger.Info("File skipped", zap.Error(err))
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		status, detail = models.FileStatusInterrupted, err.Error()
		logger.Info("File processing interrupted by shutdown", zap.Error(err))
	default:
		status, detail = models.FileStatusFailed, err.Error()
		logger.Error("File failed after retries", zap.Error(err))
		d.logFailure(path, err)
	}

	if err := d.Ledger.SetStatus(fileName, status, detail); err != nil {
		logger.Warn("Could not record file status", zap.Error(err))
	}
}

// logFailure writes the terminal failure line to the daily error log.
func (d *Dispatcher) logFailure(path string, err error) {
	if d.Failures == nil {
		return
	}
	now := d.Now()
	line := sink.AuditLine(now, fmt.Sprintf("Error processing file %s: %v", path, err))
	if logErr := d.Failures.Append(sink.ErrorArtifactName(now), line); logErr != nil {
		d.logger().Error("Could not write error log", zap.String("path", path), zap.Error(logErr))
	}
}
