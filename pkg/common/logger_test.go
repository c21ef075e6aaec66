package common

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "liyu1981.xyz/sensor-ingest-service/pkg/testing"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLogger()
	logger.Info("Test log message", zap.String("key", "value"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Test log message") {
		t.Errorf("expected log output to contain message, got: %s", logOutput)
	}
}

func TestLoggingCaptureNamed(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	GetLoggerWith(LoggerNameWatcher, zap.String(LoggerFieldIngestCategory, LoggerCategoryDispatch)).
		Debug("hidden below info")
	GetLoggerWith(LoggerNameWatcher, zap.String(LoggerFieldIngestCategory, LoggerCategoryDispatch)).
		Info("dispatched")

	logOutput := buf.String()
	if strings.Contains(logOutput, "hidden below info") {
		t.Errorf("debug entry should be filtered, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, `"logger":"watcher"`) || !strings.Contains(logOutput, `"category":"dispatch"`) {
		t.Errorf("expected named logger with category, got: %s", logOutput)
	}
}

func TestLoggerConcurrentUse(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			GetLoggerWith(LoggerNameWatcher, zap.Int("worker", i)).Info("worker log")
			GetLogger().Info("default log")
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "worker log"); got != 32 {
		t.Errorf("expected 32 worker entries, got %d", got)
	}

	SetTestLoggerNop()
	GetLogger().Info("dropped")
	if strings.Contains(buf.String(), "dropped") {
		t.Errorf("nop logger should not write to the capture buffer")
	}
}
