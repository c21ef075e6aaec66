package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

type recordingQuarantine struct {
	mu   sync.Mutex
	rows []models.RejectedRow
}

func (q *recordingQuarantine) Append(artifact string, header []string, rows []models.RejectedRow) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows = append(q.rows, rows...)
	return nil
}

func (q *recordingQuarantine) byReason(reason models.RejectReason) []models.RejectedRow {
	var out []models.RejectedRow
	for _, r := range q.rows {
		if r.Reason == reason {
			out = append(out, r)
		}
	}
	return out
}

type recordingAudit struct {
	mu    sync.Mutex
	lines []string
}

func (a *recordingAudit) Append(artifact, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lines = append(a.lines, message)
	return nil
}

func (a *recordingAudit) contains(fragment string) bool {
	for _, l := range a.lines {
		if strings.Contains(l, fragment) {
			return true
		}
	}
	return false
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 4, 10, 5, 9, 0, time.UTC) }

func newTestPipeline() (*Pipeline, *recordingQuarantine, *recordingAudit) {
	q := &recordingQuarantine{}
	a := &recordingAudit{}
	p := NewPipeline(NewRowValidator(-50, 50), q, a)
	p.Now = fixedNow
	return p, q, a
}

func testTrail() Trail {
	return Trail{
		SourcePath:         "data",
		FileName:           "readings.csv",
		QuarantineArtifact: "readings.csv_quarantine.csv",
		LogArtifact:        "readings.csv_log.log",
	}
}

func tableFrom(csvText string) *Table {
	table, err := ReadTable(strings.NewReader(csvText))
	if err != nil {
		panic(err)
	}
	return table
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
