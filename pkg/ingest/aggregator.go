package ingest

import (
	"math"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

const ProcessedTimeLayout = "2006-01-02 15:04:05"

type Aggregator struct {
	Now func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{Now: time.Now}
}

type group struct {
	location models.Location
	roomID   string
	temps    []int
}

// Aggregate summarizes batch per location in order of first appearance and
// stamps the same provenance on the metrics and on the batch readings.
func (a *Aggregator) Aggregate(batch *models.CleanedBatch, dataSource string) ([]models.AggregateMetric, error) {
	if batch == nil || len(batch.Readings) == 0 {
		return nil, ErrEmptyBatch
	}

	logger := common.GetLoggerWith(
		common.LoggerNameIngestCore,
		zap.String(common.LoggerFieldIngestCategory, common.LoggerCategoryAggregate),
		zap.String("file_name", batch.FileName),
	)

	var groups []*group
	index := make(map[models.Location]*group)
	for _, r := range batch.Readings {
		g, ok := index[r.Location]
		if !ok {
			g = &group{location: r.Location, roomID: r.RoomID}
			index[r.Location] = g
			groups = append(groups, g)
		}
		g.temps = append(g.temps, r.Temp)
	}

	processedTime := a.Now().Format(ProcessedTimeLayout)

	metrics := make([]models.AggregateMetric, len(groups))
	for i, g := range groups {
		minTemp, maxTemp, avg, std := summarize(g.temps)
		metrics[i] = models.AggregateMetric{
			RawID:         i + 1,
			RoomID:        g.roomID,
			OutIn:         g.location,
			MinTemp:       minTemp,
			MaxTemp:       maxTemp,
			AvgTemp:       avg,
			StdDvn:        std,
			DataSource:    dataSource,
			FileName:      batch.FileName,
			ProcessedTime: processedTime,
		}
	}

	for i := range batch.Readings {
		batch.Readings[i].DataSource = dataSource
		batch.Readings[i].FileName = batch.FileName
		batch.Readings[i].ProcessedTime = processedTime
	}

	logger.Info("Aggregated metrics by location (0 refers to In and 1 refers to Out)",
		zap.Reflect("metrics", metrics))

	return metrics, nil
}

// summarize returns min, max, mean and the sample standard deviation. The
// deviation is nil for a single value.
func summarize(temps []int) (int, int, float64, *float64) {
	minTemp, maxTemp := temps[0], temps[0]
	sum := 0.0
	for _, t := range temps {
		minTemp = min(minTemp, t)
		maxTemp = max(maxTemp, t)
		sum += float64(t)
	}
	n := float64(len(temps))
	mean := sum / n

	if len(temps) < 2 {
		return minTemp, maxTemp, mean, nil
	}

	var sq float64
	for _, t := range temps {
		d := float64(t) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / (n - 1))
	return minTemp, maxTemp, mean, &std
}
