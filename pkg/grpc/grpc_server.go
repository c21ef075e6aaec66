package grpc

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/reflection"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
)

// ServiceName is the health-check name reported for the file watcher.
const ServiceName = "sensor_ingest.Watcher"

type IngestServer struct {
	Health           *health.Server
	RateLimiterStore *common.RateLimiterStore
}

func NewIngestServer(limiter *common.RateLimiterStore) *IngestServer {
	return &IngestServer{
		Health:           health.NewServer(),
		RateLimiterStore: limiter,
	}
}

// Register attaches the health and reflection services to s. The watcher
// starts as NOT_SERVING until SetServing(true) is called.
func (i *IngestServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, i.Health)
	reflection.Register(s)
	i.SetServing(false)
}

func (i *IngestServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	i.Health.SetServingStatus("", st)
	i.Health.SetServingStatus(ServiceName, st)

	common.GetLoggerWith(common.LoggerNameGrpcServer).Info("Health status changed",
		zap.String("service", ServiceName), zap.String("status", st.String()))
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (i *IngestServer) Shutdown() {
	i.Health.Shutdown()
}

func (i *IngestServer) CheckClientLimiter(ctx context.Context) bool {
	return i.RateLimiterStore.Allow(clientKey(ctx))
}

func clientKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
