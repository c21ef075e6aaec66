package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

type ListFilesRequest struct {
	Status string `json:"status"`
}

var listFilesRequestSchema = z.Struct(z.Shape{
	"status": z.String().OneOf(models.FileStatuses),
})

func (rs *RestfulServer) ListFiles(c *gin.Context) {
	if !rs.CheckClientLimiter(c) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	var req ListFilesRequest
	if err := listFilesRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	files, err := rs.Ledger.List(models.FileStatus(req.Status))
	if err != nil {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("List files failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, files)
}

func (rs *RestfulServer) GetFileMetrics(c *gin.Context) {
	fileName := c.Param("file_name")

	if !rs.CheckClientLimiter(c) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	if rs.Store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics store is disabled"})
		return
	}

	metrics, err := rs.Store.GetFileMetrics(fileName)
	if err != nil {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("Get file metrics failed",
			zap.String("file_name", fileName), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(metrics) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no metrics for " + fileName})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
