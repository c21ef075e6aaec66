package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

// NotedDayLayout is the rendering of accepted dates in a cleaned batch.
const NotedDayLayout = "02/01/2006"

// Day-first layouts tried in order; ISO layouts are unambiguous.
var dateLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 3:04:05 PM",
	"2/1/2006 3:04 PM",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"2/1/06 15:04",
	"2/1/06",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// Month-first layouts, reached only when no day-first reading exists.
var monthFirstLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1-2-2006 15:04:05",
	"1-2-2006 15:04",
	"1-2-2006",
}

// Cell values read as null, following the usual CSV reader conventions.
var nullValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

var locationCodes = map[string]models.Location{
	"In":  models.LocationIn,
	"Out": models.LocationOut,
}

func isNull(v string) bool {
	_, ok := nullValues[v]
	return ok
}

// candidate is a row moving through the stages. Typed fields are only
// meaningful once the matching has* flag is set.
type candidate struct {
	raw     models.RawRow
	reading models.SensorReading

	hasTemp     bool
	hasDate     bool
	hasLocation bool
}

func (c *candidate) value(column string) string {
	return c.raw.Get(column)
}

// RowValidator holds the per-row checks. Each check partitions its input into
// kept and rejected rows and never mutates a rejected row.
type RowValidator struct {
	TempMin int
	TempMax int
}

func NewRowValidator(tempMin, tempMax int) *RowValidator {
	return &RowValidator{TempMin: tempMin, TempMax: tempMax}
}

// ParseTemp coerces a temperature cell to an integer, truncating decimals.
func ParseTemp(v string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 {
		f = math.MaxInt32
	} else if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(f), true
}

// ParseNotedDate parses a date preferring day-first order. Common numeric
// forms are matched against fixed layouts; anything else (month names,
// 12-hour clocks, other separators) goes through dateparse with day-first
// preference.
func ParseNotedDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layouts := range [][]string{dateLayouts, monthFirstLayouts} {
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
				return t, true
			}
		}
	}
	t, err := dateparse.ParseIn(v, time.UTC,
		dateparse.PreferMonthFirst(false),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CoerceTypes rejects rows whose temp is present but not numeric. Null temps
// are left for the missing-value sweep.
func (v *RowValidator) CoerceTypes(rows []*candidate) (kept, rejected []*candidate) {
	for _, c := range rows {
		raw := c.value(models.ColumnTemp)
		if isNull(raw) {
			kept = append(kept, c)
			continue
		}
		temp, ok := ParseTemp(raw)
		if !ok {
			rejected = append(rejected, c)
			continue
		}
		c.reading.Temp = temp
		c.hasTemp = true
		kept = append(kept, c)
	}
	return kept, rejected
}

// NormalizeDates rejects rows whose noted_date is present but unparseable and
// renders the rest as DD/MM/YYYY.
func (v *RowValidator) NormalizeDates(rows []*candidate) (kept, rejected []*candidate) {
	for _, c := range rows {
		raw := c.value(models.ColumnNotedDate)
		if isNull(raw) {
			kept = append(kept, c)
			continue
		}
		t, ok := ParseNotedDate(raw)
		if !ok {
			rejected = append(rejected, c)
			continue
		}
		c.reading.NotedDate = t
		c.reading.NotedDay = t.Format(NotedDayLayout)
		c.hasDate = true
		kept = append(kept, c)
	}
	return kept, rejected
}

// SweepMissing rejects rows null in any required field.
func (v *RowValidator) SweepMissing(rows []*candidate) (kept, rejected []*candidate) {
	for _, c := range rows {
		if isNull(c.value(models.ColumnID)) ||
			isNull(c.value(models.ColumnRoomID)) ||
			isNull(c.value(models.ColumnLocation)) ||
			!c.hasTemp || !c.hasDate {
			rejected = append(rejected, c)
			continue
		}
		c.reading.ID = c.value(models.ColumnID)
		c.reading.RoomID = c.value(models.ColumnRoomID)
		kept = append(kept, c)
	}
	return kept, rejected
}

// CheckRange rejects temperatures outside [TempMin, TempMax].
func (v *RowValidator) CheckRange(rows []*candidate) (kept, rejected []*candidate) {
	return common.Filter(rows, func(c *candidate) bool {
		return c.reading.Temp >= v.TempMin && c.reading.Temp <= v.TempMax
	})
}

// MapLocation maps In/Out to 0/1. A value outside the vocabulary is treated
// as missing and rejected here.
func (v *RowValidator) MapLocation(rows []*candidate) (kept, rejected []*candidate) {
	title := cases.Title(language.Und)
	for _, c := range rows {
		label := title.String(strings.TrimSpace(c.value(models.ColumnLocation)))
		code, ok := locationCodes[label]
		if !ok {
			rejected = append(rejected, c)
			continue
		}
		c.reading.Location = code
		c.hasLocation = true
		kept = append(kept, c)
	}
	return kept, rejected
}

// RemoveDuplicates keeps the first occurrence of each distinct cleaned row.
func (v *RowValidator) RemoveDuplicates(header []string, rows []*candidate) (kept, rejected []*candidate) {
	seen := make(map[string]struct{}, len(rows))
	for _, c := range rows {
		key := rowKey(header, c)
		if _, dup := seen[key]; dup {
			rejected = append(rejected, c)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, c)
	}
	return kept, rejected
}

func rowKey(header []string, c *candidate) string {
	var b strings.Builder
	for i, column := range header {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch column {
		case models.ColumnNotedDate:
			b.WriteString(c.reading.NotedDay)
		case models.ColumnTemp:
			b.WriteString(strconv.Itoa(c.reading.Temp))
		case models.ColumnLocation:
			b.WriteString(strconv.Itoa(int(c.reading.Location)))
		default:
			b.WriteString(c.value(column))
		}
	}
	return b.String()
}

// finish copies optional and passthrough columns into the reading.
func (c *candidate) finish(header []string) models.SensorReading {
	r := c.reading
	for _, column := range header {
		value := c.value(column)
		switch column {
		case models.ColumnHumidity:
			if !isNull(value) {
				r.Humidity = &value
			}
		case models.ColumnSmoke:
			if !isNull(value) {
				r.Smoke = &value
			}
		default:
			if isCanonical(column) {
				continue
			}
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[column] = value
		}
	}
	return r
}
