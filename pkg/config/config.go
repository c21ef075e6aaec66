package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/joho/godotenv"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
)

const (
	DBTypeNone   = "none"
	DBTypeFile   = "file"
	DBTypeMemory = "memory"
)

type Config struct {
	WatchRoot      string
	OutputRoot     string
	QuarantineRoot string
	LogRoot        string

	RetryAttempts     int
	RetryDelay        time.Duration
	ReadyTimeout      time.Duration
	ReadyPollInterval time.Duration

	TempMin int
	TempMax int

	DBType string
	DBPath string

	HttpHostPort string
	GrpcHostPort string

	DefaultRate  float64
	DefaultBurst int
}

var configSchema = z.Struct(z.Shape{
	"WatchRoot":      z.String().Min(1).Required(),
	"OutputRoot":     z.String().Min(1).Required(),
	"QuarantineRoot": z.String().Min(1).Required(),
	"LogRoot":        z.String().Min(1).Required(),
	"RetryAttempts":  z.Int().GTE(1).Required(),
	"DBType":         z.String().OneOf([]string{DBTypeNone, DBTypeFile, DBTypeMemory}).Required(),
	"DefaultRate":    z.Float64().GT(0).Required(),
	"DefaultBurst":   z.Int().GTE(1).Required(),
})

// Load reads .env if present and builds the config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		common.GetLogger().Info("No .env file found, falling back to process environment")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		WatchRoot:      getEnv(common.EnvKeyIngestWatchRoot, "data"),
		OutputRoot:     getEnv(common.EnvKeyIngestOutputRoot, "output_data"),
		QuarantineRoot: getEnv(common.EnvKeyIngestQuarantineRoot, "quarantine"),
		LogRoot:        getEnv(common.EnvKeyIngestLogRoot, "logs"),

		RetryAttempts:     getEnvInt(common.EnvKeyIngestRetryAttempts, 3, &errs),
		RetryDelay:        getEnvDuration(common.EnvKeyIngestRetryDelay, 5*time.Second, &errs),
		ReadyTimeout:      getEnvDuration(common.EnvKeyIngestReadyTimeout, time.Minute, &errs),
		ReadyPollInterval: getEnvDuration(common.EnvKeyIngestReadyPollInterval, 500*time.Millisecond, &errs),

		TempMin: getEnvInt(common.EnvKeyIngestTempMin, -50, &errs),
		TempMax: getEnvInt(common.EnvKeyIngestTempMax, 50, &errs),

		DBType: strings.ToLower(getEnv(common.EnvKeyIngestDBType, DBTypeNone)),
		DBPath: getEnv(common.EnvKeyIngestDbPath, "ingest.db"),

		HttpHostPort: strings.TrimSpace(getEnv(common.EnvKeyIngestHttpHostPort, ":1080")),
		GrpcHostPort: strings.TrimSpace(os.Getenv(common.EnvKeyIngestGrpcHostPort)),

		DefaultRate:  getEnvFloat(common.EnvKeyIngestDefaultRate, 10, &errs),
		DefaultBurst: getEnvInt(common.EnvKeyIngestDefaultBurst, 20, &errs),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if issues := configSchema.Validate(c); issues != nil {
		return fmt.Errorf("invalid config: %v", issues)
	}
	if c.TempMin > c.TempMax {
		return fmt.Errorf("invalid config: temperature range [%d, %d] is empty", c.TempMin, c.TempMax)
	}
	if c.RetryDelay < 0 || c.ReadyPollInterval <= 0 || c.ReadyTimeout <= 0 {
		return fmt.Errorf("invalid config: durations must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s, should be an int value: %w", key, err))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s, should be a float64 value: %w", key, err))
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s, should be a duration like 5s: %w", key, err))
		return fallback
	}
	return d
}
