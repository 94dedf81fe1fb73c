package store

import (
	"errors"
	"iter"

	"eventcal/internal/filter"
	"eventcal/internal/model"
)

var ErrNotFound = errors.New("event not found")

// Store keeps events in insertion order with an id index. Deleted events
// stay in memory as tombstones until the store is serialized.
//
// A Store has a single owner and does no locking.
type Store struct {
	events []model.Event
	index  map[int]int // id -> position in events
	nextID int
}

// New returns an empty store whose first id is 1.
func New() *Store {
	return &Store{
		index:  make(map[int]int),
		nextID: 1,
	}
}

// Create validates fields, assigns the next id and appends the event.
func (s *Store) Create(fields model.Fields) (int, error) {
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return 0, err
	}

	id := s.nextID
	s.nextID++
	s.append(model.Event{ID: id, Fields: fields})
	return id, nil
}

// Update replaces every field of a visible event except its id.
func (s *Store) Update(id int, fields model.Fields) error {
	pos, ok := s.visible(id)
	if !ok {
		return ErrNotFound
	}
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return err
	}
	s.events[pos].Fields = fields
	return nil
}

// Delete tombstones a visible event.
func (s *Store) Delete(id int) error {
	pos, ok := s.visible(id)
	if !ok {
		return ErrNotFound
	}
	s.events[pos].Deleted = true
	return nil
}

// Find returns a visible event by id.
func (s *Store) Find(id int) (model.Event, bool) {
	pos, ok := s.visible(id)
	if !ok {
		return model.Event{}, false
	}
	return s.events[pos], true
}

// Query yields visible events matching f in insertion order. The sequence
// may be ranged over any number of times; each pass sees the current state.
func (s *Store) Query(f filter.Filter) iter.Seq[model.Event] {
	return func(yield func(model.Event) bool) {
		for _, e := range s.events {
			if e.Deleted || !f.Match(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// List collects Query into a slice.
func (s *Store) List(f filter.Filter) []model.Event {
	out := make([]model.Event, 0)
	for e := range s.Query(f) {
		out = append(out, e)
	}
	return out
}

// Len returns the number of visible events.
func (s *Store) Len() int {
	n := 0
	for _, e := range s.events {
		if !e.Deleted {
			n++
		}
	}
	return n
}

// NextID is the id the next Create will assign.
func (s *Store) NextID() int {
	return s.nextID
}

func (s *Store) visible(id int) (int, bool) {
	pos, ok := s.index[id]
	if !ok || s.events[pos].Deleted {
		return 0, false
	}
	return pos, true
}

func (s *Store) append(e model.Event) {
	s.index[e.ID] = len(s.events)
	s.events = append(s.events, e)
}
