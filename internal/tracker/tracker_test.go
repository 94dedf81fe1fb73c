package tracker

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/calendar"
	"eventcal/internal/codec"
	"eventcal/internal/filter"
	"eventcal/internal/model"
	"eventcal/internal/store"
)

func meeting(desc string, day int) model.Fields {
	return model.Fields{
		Date:        calendar.Date{Day: day, Month: 6, Year: 2024},
		Start:       calendar.Time{Hour: 9},
		End:         calendar.Time{Hour: 10},
		Description: desc,
		Priority:    model.PriorityMedium,
		Category:    model.CategoryMeeting,
	}
}

func TestCRUDMarksDirty(t *testing.T) {
	t.Parallel()

	tr := New()
	assert.False(t, tr.Dirty())

	id, err := tr.CreateEvent(meeting("standup", 3))
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.True(t, tr.Dirty())

	path := filepath.Join(t.TempDir(), "events.dat")
	require.NoError(t, tr.SaveToFile(path))
	assert.False(t, tr.Dirty())

	require.NoError(t, tr.UpdateEvent(id, meeting("retro", 3)))
	assert.True(t, tr.Dirty())

	e, err := tr.GetEvent(id)
	require.NoError(t, err)
	assert.Equal(t, "retro", e.Description)

	require.NoError(t, tr.DeleteEvent(id))
	_, err = tr.GetEvent(id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, tr.DeleteEvent(id), store.ErrNotFound)
	assert.Equal(t, 0, tr.Count())
}

func TestFailedMutationLeavesCleanState(t *testing.T) {
	t.Parallel()

	tr := New()
	_, err := tr.CreateEvent(model.Fields{})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, tr.Dirty())
	assert.ErrorIs(t, tr.UpdateEvent(5, meeting("x", 1)), store.ErrNotFound)
	assert.False(t, tr.Dirty())
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.dat")
	tr := New()
	for day := 1; day <= 3; day++ {
		_, err := tr.CreateEvent(meeting("m", day))
		require.NoError(t, err)
	}
	require.NoError(t, tr.DeleteEvent(2))
	require.NoError(t, tr.SaveToFile(path))

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())

	id, err := reloaded.CreateEvent(meeting("new", 9))
	require.NoError(t, err)
	assert.Equal(t, 4, id)
}

func TestOpenBadMagicGivesEmptyTracker(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.dat")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xAB}, 64), 0o600))

	tr, err := Open(path)
	assert.ErrorIs(t, err, codec.ErrBadMagic)
	require.NotNil(t, tr)
	assert.Equal(t, 0, tr.Count())
}

func TestSaveIfDirty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.dat")
	tr := New()

	saved, err := tr.SaveIfDirty(path)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.NoFileExists(t, path)

	_, err = tr.CreateEvent(meeting("m", 1))
	require.NoError(t, err)

	saved, err = tr.SaveIfDirty(path)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.FileExists(t, path)
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	tr := New()
	_, err := tr.CreateEvent(meeting("m", 1))
	require.NoError(t, err)

	_, err = tr.SaveIfDirty(filepath.Join(blocker, "events.dat"))
	assert.Error(t, err)
	assert.True(t, tr.Dirty())
}

func TestListAndStats(t *testing.T) {
	t.Parallel()

	tr := New()
	_, err := tr.CreateEvent(meeting("Team sync", 1))
	require.NoError(t, err)
	allDay := meeting("holiday", 1)
	allDay.AllDay = true
	allDay.Category = model.CategoryHoliday
	_, err = tr.CreateEvent(allDay)
	require.NoError(t, err)

	got := tr.ListEvents(filter.New().TextContains("SYNC"))
	require.Len(t, got, 1)
	assert.Equal(t, "Team sync", got[0].Description)

	st := tr.ComputeStats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.AllDay)
	assert.Equal(t, 1, st.CategoryCounts()["Holiday"])
}

func TestExportCSVAndICS(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr := New()
	_, err := tr.CreateEvent(meeting("one", 1))
	require.NoError(t, err)
	_, err = tr.CreateEvent(meeting("two", 2))
	require.NoError(t, err)

	onFirst := filter.New().OnDate(calendar.Date{Day: 1, Month: 6, Year: 2024})

	n, err := tr.ExportCSV(filepath.Join(dir, "out.csv"), onFirst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	icsPath := filepath.Join(dir, "nested", "out.ics")
	n, err = tr.ExportICS(icsPath, filter.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	other := New()
	added, err := other.ImportICS(icsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.True(t, other.Dirty())

	for i, e := range other.ListEvents(filter.Filter{}) {
		assert.Equal(t, tr.ListEvents(filter.Filter{})[i].Fields, e.Fields)
	}
}

func TestImportICSDataReportsSkippedEvents(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:ok",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;VALUE=DATE:20240110",
		"SUMMARY:kept",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:broken",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:no start",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	tr := New()
	n, err := tr.ImportICSData([]byte(body))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, tr.Count())

	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	require.Len(t, ierr.Errs, 1)
	assert.ErrorContains(t, ierr.Errs[0], `vevent "broken"`)
}

func TestImportICSMissingFile(t *testing.T) {
	t.Parallel()

	_, err := New().ImportICS(filepath.Join(t.TempDir(), "absent.ics"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	tr := New()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				id, err := tr.CreateEvent(meeting("m", 1+(i+j)%28))
				if !assert.NoError(t, err) {
					return
				}
				_ = tr.ListEvents(filter.Filter{})
				_ = tr.ComputeStats()
				if j%5 == 0 {
					assert.NoError(t, tr.DeleteEvent(id))
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*20, tr.Count())
}
