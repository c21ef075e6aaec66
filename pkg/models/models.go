package models

import "time"

// Canonical column names after header normalization.
const (
	ColumnID        = "id"
	ColumnRoomID    = "room_id/id"
	ColumnNotedDate = "noted_date"
	ColumnTemp      = "temp"
	ColumnLocation  = "out/in"
	ColumnHumidity  = "humidity"
	ColumnSmoke     = "smoke"
)

var RequiredColumns = []string{ColumnID, ColumnRoomID, ColumnNotedDate, ColumnTemp, ColumnLocation}

type Location int

const (
	LocationIn  Location = 0
	LocationOut Location = 1
)

func (l Location) String() string {
	switch l {
	case LocationIn:
		return "In"
	case LocationOut:
		return "Out"
	default:
		return "Unknown"
	}
}

type RejectReason string

const (
	ReasonMissingColumns RejectReason = "missing-columns"
	ReasonEmptyFile      RejectReason = "empty-file"
	ReasonMissingValue   RejectReason = "missing-value"
	ReasonBadType        RejectReason = "bad-type"
	ReasonBadDate        RejectReason = "bad-date"
	ReasonOutOfRange     RejectReason = "out-of-range"
	ReasonDuplicate      RejectReason = "duplicate"
)

// RawRow is one data line of a source file keyed by normalized column name.
// Values keep the exact source text.
type RawRow struct {
	Line   int
	Values map[string]string
}

func (r RawRow) Get(column string) string {
	return r.Values[column]
}

// Record renders the row in header order.
func (r RawRow) Record(header []string) []string {
	record := make([]string, len(header))
	for i, column := range header {
		record[i] = r.Values[column]
	}
	return record
}

type RejectedRow struct {
	Row        RawRow
	Reason     RejectReason
	SourceFile string
	RejectedAt time.Time
}

type SensorReading struct {
	ID        string
	RoomID    string
	NotedDate time.Time
	// NotedDay is NotedDate rendered as DD/MM/YYYY.
	NotedDay string
	Temp     int
	Location Location
	Humidity *string
	Smoke    *string
	// Extra holds unrecognized columns passed through from the source.
	Extra map[string]string

	DataSource    string
	FileName      string
	ProcessedTime string
}

type CleanedBatch struct {
	Header     []string
	Readings   []SensorReading
	SourcePath string
	FileName   string
	RowsBefore int
	RowsAfter  int
}

// AggregateMetric is one (room, location) summary. Field order and csv tags
// define the aggregate artifact columns.
type AggregateMetric struct {
	ID            uint     `gorm:"primaryKey" csv:"-" json:"-"`
	RawID         int      `csv:"raw_id" json:"raw_id"`
	RoomID        string   `csv:"room_id" json:"room_id"`
	OutIn         Location `csv:"out_in" json:"out_in"`
	MinTemp       int      `csv:"min_temp" json:"min_temp"`
	MaxTemp       int      `csv:"max_temp" json:"max_temp"`
	AvgTemp       float64  `csv:"avg_temp" json:"avg_temp"`
	StdDvn        *float64 `csv:"std_dvn" json:"std_dvn"`
	DataSource    string   `csv:"data_source" json:"data_source"`
	FileName      string   `gorm:"index" csv:"file_name" json:"file_name"`
	ProcessedTime string   `csv:"processed_time" json:"processed_time"`
}

type FileStatus string

const (
	FileStatusDispatched FileStatus = "dispatched"
	FileStatusProcessed  FileStatus = "processed"
	FileStatusSkipped    FileStatus = "skipped"
	FileStatusFailed     FileStatus = "failed"

	// FileStatusInterrupted marks a file whose processing was cut short by
	// shutdown.
	FileStatusInterrupted FileStatus = "interrupted"
)

var FileStatuses = []string{
	string(FileStatusDispatched),
	string(FileStatusProcessed),
	string(FileStatusSkipped),
	string(FileStatusFailed),
	string(FileStatusInterrupted),
}

// ProcessedFile is a dedup ledger entry, one per file name.
type ProcessedFile struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	FileName  string     `gorm:"uniqueIndex" json:"file_name"`
	Status    FileStatus `gorm:"type:varchar(20);check:status IN ('dispatched','processed','skipped','failed','interrupted')" json:"status"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// StoredReading is a provenance-stamped cleaned reading as persisted.
type StoredReading struct {
	ID            uint   `gorm:"primaryKey"`
	ReadingID     string `gorm:"index"`
	RoomID        string
	NotedDate     string
	Temp          int
	OutIn         Location
	Humidity      *string
	Smoke         *string
	DataSource    string
	FileName      string `gorm:"index"`
	ProcessedTime string
}

func NewStoredReading(r SensorReading) StoredReading {
	return StoredReading{
		ReadingID:     r.ID,
		RoomID:        r.RoomID,
		NotedDate:     r.NotedDay,
		Temp:          r.Temp,
		OutIn:         r.Location,
		Humidity:      r.Humidity,
		Smoke:         r.Smoke,
		DataSource:    r.DataSource,
		FileName:      r.FileName,
		ProcessedTime: r.ProcessedTime,
	}
}
