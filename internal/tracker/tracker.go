// Package tracker is the application facade over the event store. It owns
// one store, serializes access to it and connects it to persistence,
// CSV and iCalendar.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"eventcal/internal/codec"
	"eventcal/internal/export"
	"eventcal/internal/filter"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/store"
)

// Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	store *store.Store
	dirty bool

	csv     *export.CSVExporter
	ics     *ics.Exporter
	fetcher *ics.Fetcher
}

func New() *Tracker {
	return &Tracker{
		store:   store.New(),
		csv:     export.NewCSVExporter(),
		ics:     ics.NewExporter(),
		fetcher: ics.NewFetcher(nil),
	}
}

// Open builds a tracker from the database at path. A file with a bad header
// yields an empty tracker together with the *codec.FormatError so the
// caller can warn and carry on.
func Open(path string) (*Tracker, error) {
	t := New()
	err := t.LoadFromFile(path)
	return t, err
}

func (t *Tracker) CreateEvent(fields model.Fields) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, err := t.store.Create(fields)
	if err != nil {
		return 0, err
	}
	t.dirty = true
	return id, nil
}

func (t *Tracker) UpdateEvent(id int, fields model.Fields) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Update(id, fields); err != nil {
		return err
	}
	t.dirty = true
	return nil
}

func (t *Tracker) DeleteEvent(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Delete(id); err != nil {
		return err
	}
	t.dirty = true
	return nil
}

// GetEvent returns store.ErrNotFound for unknown or deleted ids.
func (t *Tracker) GetEvent(id int) (model.Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.store.Find(id)
	if !ok {
		return model.Event{}, fmt.Errorf("event %d: %w", id, store.ErrNotFound)
	}
	return e, nil
}

// ListEvents returns a copy of the matching events in insertion order.
func (t *Tracker) ListEvents(f filter.Filter) []model.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.List(f)
}

// Count is the number of visible events.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Len()
}

func (t *Tracker) ComputeStats() store.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Stats()
}

// Dirty reports whether there are changes not yet written by SaveToFile.
func (t *Tracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// LoadFromFile replaces the in-memory events with the contents of path.
// The store is replaced even when an error is returned; see codec.LoadFile.
func (t *Tracker) LoadFromFile(path string) error {
	s, err := codec.LoadFile(path)

	t.mu.Lock()
	t.store = s
	t.dirty = false
	t.mu.Unlock()

	if err != nil {
		return err
	}
	appLog.Debug("events loaded", "path", path, "count", s.Len(), "next_id", s.NextID())
	return nil
}

// SaveToFile writes the visible events to path and clears the dirty flag.
func (t *Tracker) SaveToFile(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked(path)
}

// SaveIfDirty saves only when there are unsaved changes. It reports whether
// a save happened.
func (t *Tracker) SaveIfDirty(path string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dirty {
		return false, nil
	}
	if err := t.saveLocked(path); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tracker) saveLocked(path string) error {
	if err := codec.SaveFile(path, t.store); err != nil {
		return err
	}
	t.dirty = false
	appLog.Debug("events saved", "path", path, "count", t.store.Len())
	return nil
}

// WriteCSV streams matching events to w as CSV.
func (t *Tracker) WriteCSV(w io.Writer, f filter.Filter) (int, error) {
	return t.csv.Write(w, slices.Values(t.ListEvents(f)))
}

// ExportCSV writes matching events to a CSV file at path.
func (t *Tracker) ExportCSV(path string, f filter.Filter) (int, error) {
	return t.csv.WriteFile(path, slices.Values(t.ListEvents(f)))
}

// WriteICS streams matching events to w as an iCalendar document.
func (t *Tracker) WriteICS(w io.Writer, f filter.Filter) (int, error) {
	return t.ics.Write(w, slices.Values(t.ListEvents(f)))
}

// ExportICS writes matching events to an .ics file at path.
func (t *Tracker) ExportICS(path string, f filter.Filter) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}

	n, err := t.WriteICS(file, f)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close export file: %w", cerr)
	}
	return n, err
}

// ImportICS adds every convertible VEVENT in the file at path as a new
// event and returns how many were added.
func (t *Tracker) ImportICS(path string) (int, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read ics: %w", err)
	}
	return t.ImportICSData(body)
}

// ImportICSURL downloads a calendar (http, https or webcal) and imports it.
func (t *Tracker) ImportICSURL(ctx context.Context, rawURL string) (int, error) {
	body, err := t.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	return t.ImportICSData(body)
}

// ImportError lists the events of an import that were not added. The
// others were.
type ImportError struct {
	Errs []error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%d events not imported: %v", len(e.Errs), errors.Join(e.Errs...))
}

func (e *ImportError) Unwrap() []error {
	return e.Errs
}

// ImportICSData is ImportICS for an in-memory payload. Events that could
// not be added are reported by an *ImportError next to the count of those
// that were.
func (t *Tracker) ImportICSData(body []byte) (int, error) {
	parsed, errs, err := ics.ParseICS(body)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, fields := range parsed {
		if _, err := t.store.Create(fields); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if n > 0 {
		t.dirty = true
	}
	appLog.Info("ics import completed", "added", n, "failed", len(errs))
	if len(errs) > 0 {
		return n, &ImportError{Errs: errs}
	}
	return n, nil
}
