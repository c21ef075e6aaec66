package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Table is the untyped content of a source file.
type Table struct {
	Header  []string
	Records [][]string
	// Lines holds the 1-based source line of each record.
	Lines []int
}

// WaitReadable polls until path can be opened for reading. It gives up after
// timeout with a TransientIOError wrapping ErrNotReady.
func WaitReadable(ctx context.Context, path string, poll, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		f, err := os.Open(path)
		if err == nil {
			_ = f.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TransientIOError{Path: path, Err: fmt.Errorf("%w: %v", ErrNotReady, err)}
		case <-ticker.C:
		}
	}
}

// ReadTable reads a CSV stream. Short records are padded with empty values;
// records wider than the header are an error.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	table := &Table{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) > len(header) {
			return nil, fmt.Errorf("line %d: expected at most %d fields, saw %d", line, len(header), len(record))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		table.Records = append(table.Records, record)
		table.Lines = append(table.Lines, line)
	}
	return table, nil
}

func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &TransientIOError{Path: path, Err: err}
	}
	defer f.Close()

	return ReadTable(f)
}
