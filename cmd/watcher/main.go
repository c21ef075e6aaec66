package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"

	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/config"
	"liyu1981.xyz/sensor-ingest-service/pkg/db"
	ingestGrpc "liyu1981.xyz/sensor-ingest-service/pkg/grpc"
	ingestHttp "liyu1981.xyz/sensor-ingest-service/pkg/http"
	"liyu1981.xyz/sensor-ingest-service/pkg/ingest"
	"liyu1981.xyz/sensor-ingest-service/pkg/sink"
	"liyu1981.xyz/sensor-ingest-service/pkg/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config, copy .env.example to .env and check the values: %v", err)
	}
	defer common.SyncLogger()

	logger := common.GetLogger()

	var dbInstance *db.DB
	switch cfg.DBType {
	case config.DBTypeFile:
		dbInstance = db.GetInstance(db.UseSqlitePathDialector(cfg.DBPath))
	case config.DBTypeMemory:
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	}

	var ledger watcher.Ledger = watcher.NewMemoryLedger()
	var store *db.Store
	outputs := []ingest.OutputWriter{sink.NewCSVOutput(cfg.OutputRoot)}
	if dbInstance != nil {
		ledger = db.NewLedger(dbInstance)
		store = db.NewStore(dbInstance)
		outputs = append(outputs, store)
	}

	audit := sink.NewAuditLog(cfg.LogRoot)
	pipeline := ingest.NewPipeline(
		ingest.NewRowValidator(cfg.TempMin, cfg.TempMax),
		sink.NewQuarantine(cfg.QuarantineRoot),
		audit,
	)
	processor := ingest.NewFileProcessor(pipeline, ingest.NewAggregator(), ingest.ProcessorOpts{
		ReadyPollInterval: cfg.ReadyPollInterval,
		ReadyTimeout:      cfg.ReadyTimeout,
	}, outputs...)

	dispatcher := watcher.NewDispatcher(watcher.DispatcherOpts{
		Root:      cfg.WatchRoot,
		Processor: processor,
		Retrier:   watcher.NewRetrier(cfg.RetryAttempts, cfg.RetryDelay, ingest.IsRetryable),
		Ledger:    ledger,
		Failures:  audit,
		IsSkip:    func(err error) bool { return !ingest.IsRetryable(err) },
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiterInfo := zap.String("default_limiter",
		fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst))

	ingestServer := ingestGrpc.NewIngestServer(
		common.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst))

	var grpcServer *grpc.Server
	if cfg.GrpcHostPort != "" {
		interceptor := ingestServer.CreateRateLimitInterceptor([]proto.Message{
			&healthpb.HealthCheckRequest{},
		})
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		ingestServer.Register(grpcServer)
		logger.Info("gRPC server created with:", limiterInfo)

		listener, err := net.Listen("tcp", cfg.GrpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("Starting gRPC server on: " + cfg.GrpcHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("grpc server failed to serve", zap.Error(err))
			}
		}()
	}

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	rs := &ingestHttp.RestfulServer{
		Server:           gin.Default(),
		Ledger:           ledger,
		Store:            store,
		RateLimiterStore: common.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
	}
	rs.Setup()
	logger.Info("http server created with:", limiterInfo)

	httpServer := &http.Server{Addr: cfg.HttpHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed to serve", zap.Error(err))
		}
	}()

	logger.Info("Watcher configured",
		zap.String("watch_root", cfg.WatchRoot),
		zap.String("output_root", cfg.OutputRoot),
		zap.String("quarantine_root", cfg.QuarantineRoot),
		zap.String("log_root", cfg.LogRoot),
		zap.String("db_type", cfg.DBType),
		zap.Int("retry_attempts", cfg.RetryAttempts),
		zap.Duration("retry_delay", cfg.RetryDelay),
	)

	ingestServer.SetServing(true)
	if err := dispatcher.Run(ctx); err != nil {
		logger.Error("Watcher stopped with error", zap.Error(err))
	}
	ingestServer.Shutdown()

	logger.Info("Waiting for in-flight files")
	dispatcher.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	logger.Info("Shutdown complete")
}
