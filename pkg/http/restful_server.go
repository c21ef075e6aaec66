package http

import (
	"github.com/gin-gonic/gin"

	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/db"
	"liyu1981.xyz/sensor-ingest-service/pkg/watcher"
)

// RestfulServer exposes the file ledger and stored metrics over HTTP.
// Store may be nil when persistence is disabled.
type RestfulServer struct {
	Server           *gin.Engine
	Ledger           watcher.Ledger
	Store            *db.Store
	RateLimiterStore *common.RateLimiterStore
}

// CheckClientLimiter keys the limiter by client IP. Without a store every
// request is allowed.
func (rs *RestfulServer) CheckClientLimiter(c *gin.Context) bool {
	return rs.RateLimiterStore.Allow(c.ClientIP())
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)

	files := rs.Server.Group("/files")
	{
		files.GET("", rs.ListFiles)
		files.GET("/:file_name/metrics", rs.GetFileMetrics)
	}
}
