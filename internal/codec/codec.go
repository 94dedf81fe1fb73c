package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"eventcal/internal/calendar"
	"eventcal/internal/model"
	"eventcal/internal/store"
)

// File layout, little-endian:
//
//	header  magic u32 | version u32 | next_id u32 | count u32
//	record  count x fileRecord (RecordSize bytes each)
const (
	Magic      uint32 = 0xCAFEBABE
	Version    uint32 = 1
	HeaderSize        = 16
	RecordSize        = 322

	descSize = 200
	locSize  = 100

	flagAllDay = 1 << 0
)

var byteOrder = binary.LittleEndian

var (
	ErrBadMagic           = errors.New("not an event store file")
	ErrUnsupportedVersion = errors.New("unsupported event store version")
	ErrTruncatedHeader    = errors.New("event store header is truncated")
)

// FormatError reports a file that cannot be used as prior state. The store
// returned alongside it is always empty.
type FormatError struct {
	Magic   uint32
	Version uint32
	Err     error
}

func (e *FormatError) Error() string {
	if errors.Is(e.Err, ErrTruncatedHeader) {
		return "codec: " + e.Err.Error()
	}
	return fmt.Sprintf("codec: %v (magic=%#08x version=%d)", e.Err, e.Magic, e.Version)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

type fileHeader struct {
	Magic   uint32
	Version uint32
	NextID  uint32
	Count   uint32
}

// fileRecord is the on-disk shape of one event. It is decoupled from
// model.Event so the in-memory type can change without breaking files.
type fileRecord struct {
	ID          uint32
	Year        int32
	Month       uint8
	Day         uint8
	StartHour   uint8
	StartMinute uint8
	EndHour     uint8
	EndMinute   uint8
	Priority    uint8
	Category    uint8
	Flags       uint8
	_           uint8
	Reminder    uint32
	Description [descSize]byte
	Location    [locSize]byte
}

// Encode writes the snapshot's events and allocator position to w.
func Encode(w io.Writer, snap store.Snapshot) error {
	if snap.NextID < 0 || int64(snap.NextID) > math.MaxUint32 {
		return fmt.Errorf("codec: next id %d out of range", snap.NextID)
	}

	bw := bufio.NewWriter(w)
	hdr := fileHeader{
		Magic:   Magic,
		Version: Version,
		NextID:  uint32(snap.NextID),
		Count:   uint32(len(snap.Events)),
	}
	if err := binary.Write(bw, byteOrder, hdr); err != nil {
		return fmt.Errorf("codec: write header: %w", err)
	}

	for _, e := range snap.Events {
		rec, err := toRecord(e)
		if err != nil {
			return err
		}
		if err := binary.Write(bw, byteOrder, rec); err != nil {
			return fmt.Errorf("codec: write event %d: %w", e.ID, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("codec: flush: %w", err)
	}
	return nil
}

// Decode reads a store from r.
//
//   - A bad magic, unknown version or short header yields an empty store and
//     a *FormatError.
//   - A short tail keeps every complete record and is not an error.
//   - Records that fail validation are skipped.
func Decode(r io.Reader) (*store.Store, error) {
	br := bufio.NewReader(r)

	var hdr fileHeader
	if err := binary.Read(br, byteOrder, &hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return store.New(), &FormatError{Err: ErrTruncatedHeader}
		}
		return store.New(), fmt.Errorf("codec: read header: %w", err)
	}
	if hdr.Magic != Magic {
		return store.New(), &FormatError{Magic: hdr.Magic, Version: hdr.Version, Err: ErrBadMagic}
	}
	if hdr.Version != Version {
		return store.New(), &FormatError{Magic: hdr.Magic, Version: hdr.Version, Err: ErrUnsupportedVersion}
	}

	events := make([]model.Event, 0, int(min(hdr.Count, 1024)))
	seen := make(map[int]struct{}, cap(events))
	buf := make([]byte, RecordSize)
	for range hdr.Count {
		if _, err := io.ReadFull(br, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return store.New(), fmt.Errorf("codec: read event: %w", err)
		}

		var rec fileRecord
		if err := binary.Read(bytes.NewReader(buf), byteOrder, &rec); err != nil {
			return store.New(), fmt.Errorf("codec: decode event: %w", err)
		}
		e := fromRecord(rec)
		if _, dup := seen[e.ID]; dup || e.ID <= 0 || e.Fields.Validate() != nil {
			continue
		}
		seen[e.ID] = struct{}{}
		events = append(events, e)
	}

	s, err := store.Restore(int(hdr.NextID), events)
	if err != nil {
		return store.New(), fmt.Errorf("codec: %w", err)
	}
	return s, nil
}

func toRecord(e model.Event) (fileRecord, error) {
	if e.ID <= 0 || int64(e.ID) > math.MaxUint32 {
		return fileRecord{}, fmt.Errorf("codec: event id %d out of range", e.ID)
	}
	if int64(e.Date.Year) < math.MinInt32 || int64(e.Date.Year) > math.MaxInt32 {
		return fileRecord{}, fmt.Errorf("codec: event %d: year %d out of range", e.ID, e.Date.Year)
	}
	if e.ReminderMinutes < 0 || int64(e.ReminderMinutes) > math.MaxUint32 {
		return fileRecord{}, fmt.Errorf("codec: event %d: reminder %d out of range", e.ID, e.ReminderMinutes)
	}

	rec := fileRecord{
		ID:       uint32(e.ID),
		Year:     int32(e.Date.Year),
		Month:    uint8(e.Date.Month),
		Day:      uint8(e.Date.Day),
		Priority: uint8(e.Priority),
		Category: uint8(e.Category),
		Reminder: uint32(e.ReminderMinutes),
	}
	// The store clears all-day times; anything else out of range is written as 0.
	if e.Start.Valid() {
		rec.StartHour, rec.StartMinute = uint8(e.Start.Hour), uint8(e.Start.Minute)
	}
	if e.End.Valid() {
		rec.EndHour, rec.EndMinute = uint8(e.End.Hour), uint8(e.End.Minute)
	}
	if e.AllDay {
		rec.Flags |= flagAllDay
	}
	copy(rec.Description[:], model.Truncate(e.Description, descSize))
	copy(rec.Location[:], model.Truncate(e.Location, locSize))
	return rec, nil
}

func fromRecord(rec fileRecord) model.Event {
	return model.Event{
		ID: int(rec.ID),
		Fields: model.Fields{
			Date:            calendar.Date{Day: int(rec.Day), Month: int(rec.Month), Year: int(rec.Year)},
			Start:           calendar.Time{Hour: int(rec.StartHour), Minute: int(rec.StartMinute)},
			End:             calendar.Time{Hour: int(rec.EndHour), Minute: int(rec.EndMinute)},
			Description:     cString(rec.Description[:]),
			Location:        cString(rec.Location[:]),
			Priority:        model.Priority(rec.Priority),
			Category:        model.Category(rec.Category),
			AllDay:          rec.Flags&flagAllDay != 0,
			ReminderMinutes: int(rec.Reminder),
		},
	}
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
