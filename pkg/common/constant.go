package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyIngestWatchRoot      string = "INGEST_WATCH_ROOT"
	EnvKeyIngestOutputRoot     string = "INGEST_OUTPUT_ROOT"
	EnvKeyIngestQuarantineRoot string = "INGEST_QUARANTINE_ROOT"
	EnvKeyIngestLogRoot        string = "INGEST_LOG_ROOT"

	EnvKeyIngestRetryAttempts     string = "INGEST_RETRY_ATTEMPTS"
	EnvKeyIngestRetryDelay        string = "INGEST_RETRY_DELAY"
	EnvKeyIngestReadyTimeout      string = "INGEST_READY_TIMEOUT"
	EnvKeyIngestReadyPollInterval string = "INGEST_READY_POLL_INTERVAL"

	EnvKeyIngestTempMin string = "INGEST_TEMP_MIN"
	EnvKeyIngestTempMax string = "INGEST_TEMP_MAX"

	EnvKeyIngestDBType string = "INGEST_DB_TYPE"
	EnvKeyIngestDbPath string = "INGEST_DB_PATH"

	EnvKeyIngestHttpHostPort string = "INGEST_HTTP_HOST_PORT"
	EnvKeyIngestGrpcHostPort string = "INGEST_GRPC_HOST_PORT"

	EnvKeyIngestDefaultRate  string = "INGEST_DEFAULT_RATE"
	EnvKeyIngestDefaultBurst string = "INGEST_DEFAULT_BURST"

	LoggerNameIngestCore    string = "ingest_core"
	LoggerNameWatcher       string = "watcher"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"

	LoggerFieldIngestCategory string = "category"
	LoggerCategoryPipeline    string = "pipeline"
	LoggerCategoryAggregate   string = "aggregate"
	LoggerCategoryProcessor   string = "processor"
	LoggerCategoryDispatch    string = "dispatch"
	LoggerCategoryRetry       string = "retry"
	LoggerCategoryLedger      string = "ledger"
	LoggerCategoryStore       string = "store"
)
