package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{
			[]string{"id", "room_id/id", "noted_date", "temp", "out/in"},
			[]string{"id", "room_id/id", "noted_date", "temp", "out/in"},
		},
		{
			[]string{" ID ", "Room_ID/id", "ts", "Temperature", "Out/In", "Humidity", "Smoke"},
			[]string{"id", "room_id/id", "noted_date", "temp", "out/in", "humidity", "smoke"},
		},
		{
			[]string{"\ufeffid", "date", "TEMP", "battery"},
			[]string{"id", "noted_date", "temp", "battery"},
		},
		{
			[]string{"temp", "Temperature"},
			[]string{"temp", "temp.1"},
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.in), "NormalizeHeader(%q)", tt.in)
	}
}

func TestMissingColumns(t *testing.T) {
	assert.Empty(t, MissingColumns(models.RequiredColumns))
	assert.Equal(t,
		[]string{models.ColumnRoomID, models.ColumnLocation},
		MissingColumns([]string{"id", "noted_date", "temp"}))
	assert.Equal(t, models.RequiredColumns, MissingColumns(nil))
}
