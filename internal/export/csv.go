package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"

	"eventcal/internal/model"
)

// Headers names the exported columns in order.
var Headers = []string{"ID", "Date", "Time", "Description", "Location", "Priority", "Category", "Reminder"}

// CSVExporter renders events as RFC 4180 CSV. Fields holding the delimiter,
// quotes or newlines are quoted and embedded quotes doubled.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Write emits the header row then one row per event. It returns the number
// of event rows written.
func (e *CSVExporter) Write(w io.Writer, events iter.Seq[model.Event]) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(Headers); err != nil {
		return 0, fmt.Errorf("write csv headers: %w", err)
	}

	n := 0
	for ev := range events {
		if ev.Deleted {
			continue
		}
		if err := writer.Write(Row(ev)); err != nil {
			return n, fmt.Errorf("write csv row %d: %w", ev.ID, err)
		}
		n++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	return n, nil
}

// WriteFile creates or truncates path and writes the CSV into it.
func (e *CSVExporter) WriteFile(path string, events iter.Seq[model.Event]) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}

	n, err := e.Write(file, events)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close export file: %w", cerr)
	}
	return n, err
}

// Row is the CSV record for one event.
func Row(ev model.Event) []string {
	return []string{
		strconv.Itoa(ev.ID),
		ev.Date.String(),
		ev.TimeRange(),
		ev.Description,
		ev.Location,
		ev.Priority.String(),
		ev.Category.String(),
		strconv.Itoa(ev.ReminderMinutes),
	}
}
