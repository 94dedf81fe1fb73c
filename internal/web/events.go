package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventcal/internal/calendar"
	"eventcal/internal/filter"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/store"
	"eventcal/internal/tracker"
)

// maxImportBytes bounds an uploaded .ics body.
const maxImportBytes = 4 << 20

// eventRequest is the body of POST and PUT /api/events. Dates accept
// YYYY-MM-DD or DD/MM/YYYY, times HH:MM. Times may be omitted for all-day
// events.
type eventRequest struct {
	Date            string         `json:"date"`
	Start           string         `json:"start"`
	End             string         `json:"end"`
	Description     string         `json:"description"`
	Location        string         `json:"location"`
	Priority        model.Priority `json:"priority"`
	Category        model.Category `json:"category"`
	AllDay          bool           `json:"all_day"`
	ReminderMinutes int            `json:"reminder_minutes"`
}

type eventResponse struct {
	ID              int            `json:"id"`
	Date            string         `json:"date"`
	Start           string         `json:"start,omitempty"`
	End             string         `json:"end,omitempty"`
	Time            string         `json:"time"`
	Description     string         `json:"description"`
	Location        string         `json:"location"`
	Priority        model.Priority `json:"priority"`
	Category        model.Category `json:"category"`
	AllDay          bool           `json:"all_day"`
	ReminderMinutes int            `json:"reminder_minutes"`
}

type eventsResponse struct {
	Total  int             `json:"total"`
	Count  int             `json:"count"`
	Filter string          `json:"filter"`
	Events []eventResponse `json:"events"`
}

type importResponse struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

type statsResponse struct {
	Total        int            `json:"total"`
	AllDay       int            `json:"all_day"`
	WithReminder int            `json:"with_reminder"`
	ByPriority   map[string]int `json:"by_priority"`
	ByCategory   map[string]int `json:"by_category"`
}

func (r eventRequest) fields() (model.Fields, error) {
	f := model.Fields{
		Description:     r.Description,
		Location:        r.Location,
		Priority:        r.Priority,
		Category:        r.Category,
		AllDay:          r.AllDay,
		ReminderMinutes: r.ReminderMinutes,
	}

	d, err := calendar.ParseAnyDate(r.Date)
	if err != nil {
		return f, &model.ValidationError{Field: "date", Err: model.ErrInvalidDate}
	}
	f.Date = d

	if r.AllDay && r.Start == "" && r.End == "" {
		return f, nil
	}
	if f.Start, err = calendar.ParseTime(r.Start); err != nil && !r.AllDay {
		return f, &model.ValidationError{Field: "start", Err: model.ErrInvalidTime}
	}
	if f.End, err = calendar.ParseTime(r.End); err != nil && !r.AllDay {
		return f, &model.ValidationError{Field: "end", Err: model.ErrInvalidTime}
	}
	return f, nil
}

func toResponse(e model.Event) eventResponse {
	resp := eventResponse{
		ID:              e.ID,
		Date:            e.Date.ISO(),
		Time:            e.TimeRange(),
		Description:     e.Description,
		Location:        e.Location,
		Priority:        e.Priority,
		Category:        e.Category,
		AllDay:          e.AllDay,
		ReminderMinutes: e.ReminderMinutes,
	}
	if !e.AllDay {
		resp.Start = e.Start.String()
		resp.End = e.End.String()
	}
	return resp
}

// filterFromQuery reads date, today, q, category and priority.
func filterFromQuery(c *gin.Context) (filter.Filter, error) {
	f := filter.New()

	if v := c.Query("date"); v != "" {
		d, err := calendar.ParseAnyDate(v)
		if err != nil {
			return f, &model.ValidationError{Field: "date", Err: model.ErrInvalidDate}
		}
		f = f.OnDate(d)
	}
	if v := c.Query("today"); v != "" {
		today, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("today: expected a boolean")
		}
		if today {
			f = f.Today()
		}
	}
	if v := c.Query("q"); v != "" {
		f = f.TextContains(v)
	}
	if v := c.Query("category"); v != "" {
		cat, err := model.ParseCategory(v)
		if err != nil {
			return f, &model.ValidationError{Field: "category", Err: model.ErrInvalidCategory}
		}
		f = f.InCategory(cat)
	}
	if v := c.Query("priority"); v != "" {
		p, err := model.ParsePriority(v)
		if err != nil {
			return f, &model.ValidationError{Field: "priority", Err: model.ErrInvalidPriority}
		}
		f = f.WithPriority(p)
	}
	return f, nil
}

func (s *Server) handleListEvents(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	events := s.tracker.ListEvents(f)
	resp := eventsResponse{
		Total:  s.tracker.Count(),
		Count:  len(events),
		Filter: f.String(),
		Events: make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, toResponse(e))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	e, err := s.tracker.GetEvent(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(e))
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	fields, err := req.fields()
	if err != nil {
		s.fail(c, err)
		return
	}

	id, err := s.tracker.CreateEvent(fields)
	if err != nil {
		s.fail(c, err)
		return
	}
	e, err := s.tracker.GetEvent(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	appLog.Info("event created", "id", id, "date", e.Date.String())
	c.JSON(http.StatusCreated, toResponse(e))
}

func (s *Server) handleUpdateEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	fields, err := req.fields()
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.tracker.UpdateEvent(id, fields); err != nil {
		s.fail(c, err)
		return
	}
	e, err := s.tracker.GetEvent(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	appLog.Info("event updated", "id", id)
	c.JSON(http.StatusOK, toResponse(e))
}

func (s *Server) handleDeleteEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.tracker.DeleteEvent(id); err != nil {
		s.fail(c, err)
		return
	}
	appLog.Info("event deleted", "id", id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStats(c *gin.Context) {
	st := s.tracker.ComputeStats()
	c.JSON(http.StatusOK, statsResponse{
		Total:        st.Total,
		AllDay:       st.AllDay,
		WithReminder: st.WithReminder,
		ByPriority:   st.PriorityCounts(),
		ByCategory:   st.CategoryCounts(),
	})
}

func (s *Server) handleSave(c *gin.Context) {
	err := s.tracker.SaveToFile(s.cfg.DataFile)
	s.metrics.ObserveSave("api", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": s.tracker.Count(), "path": s.cfg.DataFile})
}

func (s *Server) handleExportCSV(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="events.csv"`)
	c.Status(http.StatusOK)
	if _, err := s.tracker.WriteCSV(c.Writer, f); err != nil {
		// Headers are already out; all we can do is log.
		appLog.Error("csv export failed", err)
	}
}

func (s *Server) handleExportICS(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="events.ics"`)
	c.Status(http.StatusOK)
	if _, err := s.tracker.WriteICS(c.Writer, f); err != nil {
		appLog.Error("ics export failed", err)
	}
}

func (s *Server) handleImportICS(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxImportBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "ics body too large")
		return
	}

	n, err := s.tracker.ImportICSData(body)
	if err != nil && n == 0 {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp := importResponse{Imported: n, Errors: []string{}}
	var ierr *tracker.ImportError
	if errors.As(err, &ierr) {
		for _, e := range ierr.Errs {
			resp.Errors = append(resp.Errors, e.Error())
		}
	}
	resp.Failed = len(resp.Errors)
	c.JSON(http.StatusOK, resp)
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// fail maps tracker errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		appLog.Error("request failed", err, "path", c.Request.URL.Path)
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
