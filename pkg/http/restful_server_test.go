package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/db"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
	_ "liyu1981.xyz/sensor-ingest-service/pkg/testing"
	"liyu1981.xyz/sensor-ingest-service/pkg/watcher"
	"liyu1981.xyz/sensor-ingest-service/pkg/watcher/mocks"
)

func setupTestServer(ledger watcher.Ledger, limiter *common.RateLimiterStore) *RestfulServer {
	gin.SetMode(gin.TestMode)

	rs := &RestfulServer{
		Server:           gin.New(),
		Ledger:           ledger,
		Store:            db.NewStore(db.GetInstance(db.UseMemorySqliteDialector())),
		RateLimiterStore: limiter,
	}

	rs.Setup()

	return rs
}

func get(rs *RestfulServer, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	rs.Server.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	rs := setupTestServer(watcher.NewMemoryLedger(), nil)

	w := get(rs, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListFiles(t *testing.T) {
	common.SetTestLoggerNop()

	ledger := watcher.NewMemoryLedger()
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		_, err := ledger.MarkIfNew(name)
		require.NoError(t, err)
	}
	require.NoError(t, ledger.SetStatus("a.csv", models.FileStatusProcessed, ""))
	require.NoError(t, ledger.SetStatus("b.csv", models.FileStatusFailed, "boom"))

	rs := setupTestServer(ledger, nil)

	{
		w := get(rs, "/files")
		require.Equal(t, http.StatusOK, w.Code)

		var files []models.ProcessedFile
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
		assert.Len(t, files, 3)
	}

	{
		w := get(rs, "/files?status=failed")
		require.Equal(t, http.StatusOK, w.Code)

		var files []models.ProcessedFile
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
		require.Len(t, files, 1)
		assert.Equal(t, "b.csv", files[0].FileName)
		assert.Equal(t, "boom", files[0].Detail)
	}
}

func TestListFiles_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	{
		// unknown status should be rejected
		rs := setupTestServer(watcher.NewMemoryLedger(), nil)
		w := get(rs, "/files?status=exploded")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	{
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		mockLedger := mocks.NewMockLedger(ctrl)
		mockLedger.EXPECT().
			List(gomock.Eq(models.FileStatusProcessed)).
			Return(nil, fmt.Errorf("just causing error")).
			Times(1)

		rs := setupTestServer(mockLedger, nil)
		w := get(rs, "/files?status=processed")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
}

func TestGetFileMetrics(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(watcher.NewMemoryLedger(), nil)

	fileName := uuid.NewString() + ".csv"
	std := 1.5
	metrics := []models.AggregateMetric{
		{RawID: 1, RoomID: "room1", OutIn: models.LocationOut, MinTemp: 30, MaxTemp: 33, AvgTemp: 31.5, StdDvn: &std,
			DataSource: "data", FileName: fileName, ProcessedTime: "2024-03-04 10:05:09"},
		{RawID: 2, RoomID: "room1", OutIn: models.LocationIn, MinTemp: 25, MaxTemp: 25, AvgTemp: 25,
			DataSource: "data", FileName: fileName, ProcessedTime: "2024-03-04 10:05:09"},
	}
	require.NoError(t, rs.Store.Write(&models.CleanedBatch{FileName: fileName}, metrics))

	w := get(rs, "/files/"+fileName+"/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.AggregateMetric
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].RawID)
	assert.Equal(t, models.LocationOut, got[0].OutIn)
	assert.Nil(t, got[1].StdDvn)
}

func TestGetFileMetrics_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	{
		rs := setupTestServer(watcher.NewMemoryLedger(), nil)
		w := get(rs, "/files/"+uuid.NewString()+".csv/metrics")
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	{
		// without a store there is nothing to serve
		rs := setupTestServer(watcher.NewMemoryLedger(), nil)
		rs.Store = nil
		w := get(rs, "/files/readings.csv/metrics")
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}

func TestLimiter(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(watcher.NewMemoryLedger(), common.NewRateLimiterStore(2, 2))

	// same client address for every request, only 2 should pass
	for i := range 3 {
		w := get(rs, "/files")
		if i < 2 {
			require.Equal(t, http.StatusOK, w.Code, "request %d should be allowed", i+1)
		} else {
			require.Equal(t, http.StatusTooManyRequests, w.Code, "request %d should be rate limited", i+1)
		}
	}

	// health check is never limited
	assert.Equal(t, http.StatusOK, get(rs, "/healthz").Code)
}

func TestLimiterBlocksAll(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(watcher.NewMemoryLedger(), common.NewRateLimiterStore(0, 0))

	assert.Equal(t, http.StatusTooManyRequests, get(rs, "/files").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(rs, "/files/readings.csv/metrics").Code)
}

func TestLimiterPerClient(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(watcher.NewMemoryLedger(), common.NewRateLimiterStore(0, 1))

	for _, addr := range []string{"10.0.0.1:4000", "10.0.0.2:4000"} {
		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		rs.Server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "first request from %s should pass", addr)
	}

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.RemoteAddr = "10.0.0.1:4001"
	w := httptest.NewRecorder()
	rs.Server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestLimiterDisabled(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(watcher.NewMemoryLedger(), nil)

	for i := range 50 {
		require.Equal(t, http.StatusOK, get(rs, "/files").Code, "request %d should be allowed", i+1)
	}
}
