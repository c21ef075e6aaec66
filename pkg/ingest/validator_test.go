package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

func TestParseTemp(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"25", 25, true},
		{" 25 ", 25, true},
		{"-7", -7, true},
		{"29.9", 29, true},
		{"-0.5", 0, true},
		{"1e3", 1000, true},
		{"abc", 0, false},
		{"nan", 0, false},
		{"inf", 0, false},
		{"", 0, false},
		{"1e300", 2147483647, true},
	}

	for _, tt := range tests {
		got, ok := ParseTemp(tt.raw)
		assert.Equal(t, tt.ok, ok, "ParseTemp(%q) ok", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, got, "ParseTemp(%q)", tt.raw)
		}
	}
}

func TestParseNotedDateDayFirst(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"03/04/2021", time.Date(2021, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"08-12-2018 09:30", time.Date(2018, 12, 8, 9, 30, 0, 0, time.UTC)},
		{"8-12-2018 9:30", time.Date(2018, 12, 8, 9, 30, 0, 0, time.UTC)},
		{"31.01.2020", time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"2020-01-31 12:00:00", time.Date(2020, 1, 31, 12, 0, 0, 0, time.UTC)},
		{"2020-01-31", time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"03/04/2021 10:00:00 PM", time.Date(2021, 4, 3, 22, 0, 0, 0, time.UTC)},
		{"12-31-2021 10:00", time.Date(2021, 12, 31, 10, 0, 0, 0, time.UTC)},
		{"8 Dec 2018 09:30", time.Date(2018, 12, 8, 9, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, ok := ParseNotedDate(tt.raw)
		assert.True(t, ok, "ParseNotedDate(%q)", tt.raw)
		assert.True(t, tt.want.Equal(got), "ParseNotedDate(%q) = %v; want %v", tt.raw, got, tt.want)
	}

	for _, bad := range []string{"yesterday", "not a date", "31/31/2020", "2020-13-45"} {
		_, ok := ParseNotedDate(bad)
		assert.False(t, ok, "ParseNotedDate(%q) should fail", bad)
	}
}

func candidatesFrom(rows ...map[string]string) []*candidate {
	out := make([]*candidate, len(rows))
	for i, values := range rows {
		out[i] = &candidate{raw: models.RawRow{Line: i + 2, Values: values}}
	}
	return out
}

func TestCoerceTypesLeavesNullForSweep(t *testing.T) {
	v := NewRowValidator(-50, 50)
	rows := candidatesFrom(
		map[string]string{"temp": "21"},
		map[string]string{"temp": ""},
		map[string]string{"temp": "warm"},
	)

	kept, rejected := v.CoerceTypes(rows)
	assert.Len(t, kept, 2)
	assert.Len(t, rejected, 1)
	assert.Equal(t, "warm", rejected[0].value("temp"))
	assert.True(t, kept[0].hasTemp)
	assert.False(t, kept[1].hasTemp)

	kept, rejected = v.SweepMissing(kept)
	assert.Empty(t, kept)
	assert.Len(t, rejected, 2)
}

func TestCheckRangeInclusive(t *testing.T) {
	v := NewRowValidator(-50, 50)
	rows := candidatesFrom(
		map[string]string{"temp": "-50"},
		map[string]string{"temp": "50"},
		map[string]string{"temp": "51"},
		map[string]string{"temp": "-51"},
	)
	rows, _ = v.CoerceTypes(rows)

	kept, rejected := v.CheckRange(rows)
	assert.Len(t, kept, 2)
	assert.Len(t, rejected, 2)
	assert.Equal(t, "51", rejected[0].value("temp"))
	assert.Equal(t, "-51", rejected[1].value("temp"))
}

func TestMapLocation(t *testing.T) {
	v := NewRowValidator(-50, 50)
	rows := candidatesFrom(
		map[string]string{"out/in": " in "},
		map[string]string{"out/in": "OUT"},
		map[string]string{"out/in": "Outside"},
	)

	kept, rejected := v.MapLocation(rows)
	assert.Len(t, kept, 2)
	assert.Equal(t, models.LocationIn, kept[0].reading.Location)
	assert.Equal(t, models.LocationOut, kept[1].reading.Location)
	assert.True(t, kept[1].hasLocation)
	assert.Len(t, rejected, 1)
	assert.Equal(t, "Outside", rejected[0].value("out/in"))
}

func TestRemoveDuplicatesKeepsFirst(t *testing.T) {
	v := NewRowValidator(-50, 50)
	header := []string{"id", "temp"}
	rows := candidatesFrom(
		map[string]string{"id": "a", "temp": "20"},
		map[string]string{"id": "a", "temp": "20.0"},
		map[string]string{"id": "b", "temp": "20"},
	)
	rows, _ = v.CoerceTypes(rows)

	kept, rejected := v.RemoveDuplicates(header, rows)
	assert.Len(t, kept, 2)
	assert.Equal(t, 2, kept[0].raw.Line)
	assert.Len(t, rejected, 1)
	assert.Equal(t, 3, rejected[0].raw.Line)
}
