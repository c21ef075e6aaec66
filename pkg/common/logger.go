package common

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is read by every worker goroutine; tests swap it at runtime.
var (
	logger atomic.Pointer[zap.Logger]
	once   sync.Once
)

func getLogger() *zap.Logger {
	initLogger()
	return logger.Load()
}

func GetLogger() *zap.Logger {
	return getLogger().Named("default")
}

func GetLoggerWith(name string, fields ...zap.Field) *zap.Logger {
	return getLogger().Named(name).With(fields...)
}

// SyncLogger flushes buffered entries. Call it once on shutdown.
func SyncLogger() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}

func logsDir() string {
	if dir := os.Getenv(EnvKeyIngestLogRoot); dir != "" {
		return dir
	}

	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Error getting current directory: %v", err)
	}
	return filepath.Join(dir, "logs")
}

func initLogger() {
	once.Do(func() {
		dir := logsDir()
		logsFile := filepath.Join(dir, "ingest.log")

		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			log.Fatalf("Error find/create logs directory: %v", err)
		}

		logFile := &lumberjack.Logger{
			Filename:   logsFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28,   // days
			Compress:   true, // gzip
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(logFile),
			zap.InfoLevel,
		)

		if IsProduction() {
			logger.Store(zap.New(fileCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
		} else {
			consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
			consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel)

			combinedCore := zapcore.NewTee(fileCore, consoleCore)
			logger.Store(zap.New(combinedCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
		}
	})
}

// SetTestCaptureLogger swaps the process logger for a JSON logger writing into
// buf. Reads of buf are not synchronized, so tests that log from workers
// should only read it after the workers are done.
func SetTestCaptureLogger(buf *bytes.Buffer, level zapcore.Level) {
	initLogger()

	writer := zapcore.AddSync(&lockedBuffer{buf: buf})
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	core := zapcore.NewCore(encoder, writer, level)
	logger.Store(zap.New(core))
}

func SetTestLoggerNop() {
	initLogger()

	logger.Store(zap.NewNop())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}
