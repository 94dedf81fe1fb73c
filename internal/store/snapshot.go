package store

import (
	"fmt"

	"eventcal/internal/filter"
	"eventcal/internal/model"
)

// Snapshot is the persistent view of a store: the allocator position and
// the visible events in insertion order. Tombstones are left out, which is
// the only place they are ever dropped.
type Snapshot struct {
	NextID int
	Events []model.Event
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		NextID: s.nextID,
		Events: s.List(filter.Filter{}),
	}
}

// Restore builds a store from persisted state. Each event is validated as
// Create would; the allocator is moved past the highest loaded id so ids
// stay unique even if nextID was stale.
func Restore(nextID int, events []model.Event) (*Store, error) {
	s := New()
	if nextID > s.nextID {
		s.nextID = nextID
	}
	for _, e := range events {
		if e.ID <= 0 {
			return nil, fmt.Errorf("restore: invalid id %d", e.ID)
		}
		if _, dup := s.index[e.ID]; dup {
			return nil, fmt.Errorf("restore: duplicate id %d", e.ID)
		}
		e.Deleted = false
		e.Fields.Normalize()
		if err := e.Fields.Validate(); err != nil {
			return nil, fmt.Errorf("restore: event %d: %w", e.ID, err)
		}
		s.append(e)
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
	}
	return s, nil
}
