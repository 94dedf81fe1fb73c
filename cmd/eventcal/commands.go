package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"eventcal/internal/autosave"
	"eventcal/internal/calendar"
	"eventcal/internal/config"
	"eventcal/internal/filter"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/store"
	"eventcal/internal/tracker"
	"eventcal/internal/web"
)

type app struct {
	cfg     *config.Config
	tracker *tracker.Tracker
	out     io.Writer
	errOut  io.Writer
}

type command func(ctx context.Context, args []string) error

// errUsage means the flags were wrong; the FlagSet already printed why.
var errUsage = errors.New("usage")

func (a *app) dispatch(ctx context.Context, name string, args []string) int {
	commands := map[string]command{
		"add":        a.cmdAdd,
		"edit":       a.cmdEdit,
		"delete":     a.cmdDelete,
		"list":       a.cmdList,
		"show":       a.cmdShow,
		"stats":      a.cmdStats,
		"export":     a.cmdExport,
		"export-ics": a.cmdExportICS,
		"import-ics": a.cmdImportICS,
		"serve":      a.cmdServe,
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n\n", name)
		usage(a.errOut)
		return 2
	}

	err := cmd(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintln(a.errOut, "error:", err)
		var verr *model.ValidationError
		if !errors.As(err, &verr) && !errors.Is(err, store.ErrNotFound) {
			appLog.Error("command failed", err, "command", name)
		}
		return 1
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

// save persists after a successful mutation.
func (a *app) save() error {
	if err := a.tracker.SaveToFile(a.cfg.DataFile); err != nil {
		return fmt.Errorf("save %s: %w", a.cfg.DataFile, err)
	}
	return nil
}

// eventFlags binds the editable event fields to a FlagSet. Values are kept
// as strings so edit can tell which ones were given.
type eventFlags struct {
	date, start, end   string
	desc, location     string
	priority, category string
	allDay             bool
	reminder           int
}

func (e *eventFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&e.date, "date", "", "Date as DD/MM/YYYY or YYYY-MM-DD")
	fs.StringVar(&e.start, "start", "", "Start time HH:MM")
	fs.StringVar(&e.end, "end", "", "End time HH:MM")
	fs.StringVar(&e.desc, "desc", "", "Description")
	fs.StringVar(&e.location, "location", "", "Location")
	fs.StringVar(&e.priority, "priority", "Medium", "Low, Medium, High or Critical")
	fs.StringVar(&e.category, "category", "Other", "Work, Personal, Birthday, Meeting, Appointment, Reminder, Holiday or Other")
	fs.BoolVar(&e.allDay, "all-day", false, "All-day event; start and end are ignored")
	fs.IntVar(&e.reminder, "reminder", 0, "Reminder minutes before start, 0 for none")
}

// apply overlays the flags that were set on base.
func (e *eventFlags) apply(fs *flag.FlagSet, base model.Fields) (model.Fields, error) {
	f := base
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "date":
			var d calendar.Date
			if d, err = calendar.ParseAnyDate(e.date); err != nil {
				err = &model.ValidationError{Field: "date", Err: model.ErrInvalidDate}
				return
			}
			f.Date = d
		case "start":
			var t calendar.Time
			if t, err = calendar.ParseTime(e.start); err != nil {
				err = &model.ValidationError{Field: "start", Err: model.ErrInvalidTime}
				return
			}
			f.Start = t
		case "end":
			var t calendar.Time
			if t, err = calendar.ParseTime(e.end); err != nil {
				err = &model.ValidationError{Field: "end", Err: model.ErrInvalidTime}
				return
			}
			f.End = t
		case "desc":
			f.Description = e.desc
		case "location":
			f.Location = e.location
		case "priority":
			var p model.Priority
			if p, err = model.ParsePriority(e.priority); err != nil {
				err = &model.ValidationError{Field: "priority", Err: model.ErrInvalidPriority}
				return
			}
			f.Priority = p
		case "category":
			var c model.Category
			if c, err = model.ParseCategory(e.category); err != nil {
				err = &model.ValidationError{Field: "category", Err: model.ErrInvalidCategory}
				return
			}
			f.Category = c
		case "all-day":
			f.AllDay = e.allDay
		case "reminder":
			f.ReminderMinutes = e.reminder
		}
	})
	return f, err
}

// filterFlags binds the list/export filters.
type filterFlags struct {
	today              bool
	date, text         string
	category, priority string
}

func (ff *filterFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&ff.today, "today", false, "Only today's events")
	fs.StringVar(&ff.date, "date", "", "Only events on this date")
	fs.StringVar(&ff.text, "q", "", "Case-insensitive description search")
	fs.StringVar(&ff.category, "category", "", "Only this category")
	fs.StringVar(&ff.priority, "priority", "", "Only this priority")
}

func (ff *filterFlags) build() (filter.Filter, error) {
	f := filter.New()
	if ff.today {
		f = f.Today()
	}
	if ff.date != "" {
		d, err := calendar.ParseAnyDate(ff.date)
		if err != nil {
			return f, &model.ValidationError{Field: "date", Err: model.ErrInvalidDate}
		}
		f = f.OnDate(d)
	}
	if ff.text != "" {
		f = f.TextContains(ff.text)
	}
	if ff.category != "" {
		c, err := model.ParseCategory(ff.category)
		if err != nil {
			return f, &model.ValidationError{Field: "category", Err: model.ErrInvalidCategory}
		}
		f = f.InCategory(c)
	}
	if ff.priority != "" {
		p, err := model.ParsePriority(ff.priority)
		if err != nil {
			return f, &model.ValidationError{Field: "priority", Err: model.ErrInvalidPriority}
		}
		f = f.WithPriority(p)
	}
	return f, nil
}

func (a *app) cmdAdd(_ context.Context, args []string) error {
	fs := a.flagSet("add")
	var ef eventFlags
	ef.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	fields, err := ef.apply(fs, model.Fields{Priority: model.PriorityMedium, Category: model.CategoryOther})
	if err != nil {
		return err
	}
	id, err := a.tracker.CreateEvent(fields)
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}
	appLog.Info("event created", "id", id)
	fmt.Fprintf(a.out, "Event added with ID %d\n", id)
	return nil
}

func (a *app) cmdEdit(_ context.Context, args []string) error {
	fs := a.flagSet("edit")
	id := fs.Int("id", 0, "Event id")
	var ef eventFlags
	ef.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	current, err := a.tracker.GetEvent(*id)
	if err != nil {
		return err
	}
	fields, err := ef.apply(fs, current.Fields)
	if err != nil {
		return err
	}
	if err := a.tracker.UpdateEvent(*id, fields); err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}
	appLog.Info("event updated", "id", *id)
	fmt.Fprintf(a.out, "Event %d updated\n", *id)
	return nil
}

func (a *app) cmdDelete(_ context.Context, args []string) error {
	fs := a.flagSet("delete")
	id := fs.Int("id", 0, "Event id")
	if err := parse(fs, args); err != nil {
		return err
	}

	if err := a.tracker.DeleteEvent(*id); err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}
	appLog.Info("event deleted", "id", *id)
	fmt.Fprintf(a.out, "Event %d deleted\n", *id)
	return nil
}

func (a *app) cmdList(_ context.Context, args []string) error {
	fs := a.flagSet("list")
	var ff filterFlags
	ff.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	f, err := ff.build()
	if err != nil {
		return err
	}

	events := a.tracker.ListEvents(f)
	if len(events) == 0 {
		fmt.Fprintln(a.out, "No events found.")
	} else {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDATE\tTIME\tPRIORITY\tCATEGORY\tDESCRIPTION")
		for _, e := range events {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.Date, e.TimeRange(), e.Priority, e.Category, e.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Total Events: %d | Showing: %d\n", a.tracker.Count(), len(events))
	return nil
}

func (a *app) cmdShow(_ context.Context, args []string) error {
	fs := a.flagSet("show")
	id := fs.Int("id", 0, "Event id")
	if err := parse(fs, args); err != nil {
		return err
	}

	e, err := a.tracker.GetEvent(*id)
	if err != nil {
		return err
	}

	reminder := "none"
	if e.HasReminder() {
		reminder = fmt.Sprintf("%d minutes before", e.ReminderMinutes)
	}
	location := e.Location
	if location == "" {
		location = "-"
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", e.ID)
	fmt.Fprintf(tw, "Description:\t%s\n", e.Description)
	fmt.Fprintf(tw, "Date:\t%s\n", e.Date)
	fmt.Fprintf(tw, "Time:\t%s\n", e.TimeRange())
	fmt.Fprintf(tw, "Location:\t%s\n", location)
	fmt.Fprintf(tw, "Priority:\t%s\n", e.Priority)
	fmt.Fprintf(tw, "Category:\t%s\n", e.Category)
	fmt.Fprintf(tw, "Reminder:\t%s\n", reminder)
	return tw.Flush()
}

func (a *app) cmdStats(_ context.Context, args []string) error {
	fs := a.flagSet("stats")
	if err := parse(fs, args); err != nil {
		return err
	}

	st := a.tracker.ComputeStats()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total events:\t%d\n", st.Total)
	fmt.Fprintf(tw, "All-day:\t%d\n", st.AllDay)
	fmt.Fprintf(tw, "With reminder:\t%d\n", st.WithReminder)
	fmt.Fprintln(tw, "\nBy priority:\t")
	for i, n := range st.ByPriority {
		fmt.Fprintf(tw, "  %s\t%d\n", model.Priority(i), n)
	}
	fmt.Fprintln(tw, "\nBy category:\t")
	for i, n := range st.ByCategory {
		fmt.Fprintf(tw, "  %s\t%d\n", model.Category(i), n)
	}
	return tw.Flush()
}

func (a *app) cmdExport(_ context.Context, args []string) error {
	fs := a.flagSet("export")
	out := fs.String("out", "events.csv", "Output file; bare names go to export_dir")
	var ff filterFlags
	ff.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	f, err := ff.build()
	if err != nil {
		return err
	}

	path := a.cfg.ExportPath(*out)
	n, err := a.tracker.ExportCSV(path, f)
	if err != nil {
		return err
	}
	appLog.Info("csv export written", "path", path, "count", n, "filter", f.String())
	fmt.Fprintf(a.out, "Exported %d events to %s\n", n, path)
	return nil
}

func (a *app) cmdExportICS(_ context.Context, args []string) error {
	fs := a.flagSet("export-ics")
	out := fs.String("out", "events.ics", "Output file; bare names go to export_dir")
	var ff filterFlags
	ff.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	f, err := ff.build()
	if err != nil {
		return err
	}

	path := a.cfg.ExportPath(*out)
	n, err := a.tracker.ExportICS(path, f)
	if err != nil {
		return err
	}
	appLog.Info("ics export written", "path", path, "count", n, "filter", f.String())
	fmt.Fprintf(a.out, "Exported %d events to %s\n", n, path)
	return nil
}

func (a *app) cmdImportICS(ctx context.Context, args []string) error {
	fs := a.flagSet("import-ics")
	in := fs.String("in", "", "iCalendar file to import")
	from := fs.String("url", "", "http, https or webcal URL to import from")
	if err := parse(fs, args); err != nil {
		return err
	}
	if (*in == "") == (*from == "") {
		fmt.Fprintln(a.errOut, "import-ics: exactly one of -in or -url is required")
		return errUsage
	}

	var (
		n         int
		importErr error
		source    = *in
	)
	if *from != "" {
		source = *from
		n, importErr = a.tracker.ImportICSURL(ctx, *from)
	} else {
		n, importErr = a.tracker.ImportICS(*in)
	}
	if n > 0 {
		if err := a.save(); err != nil {
			return err
		}
	}
	if importErr != nil && n == 0 {
		return importErr
	}
	if importErr != nil {
		appLog.Warn("some events were not imported", "error", importErr.Error())
	}
	fmt.Fprintf(a.out, "Imported %d events from %s\n", n, source)
	return nil
}

// cmdServe runs the API and the autosave job until ctx is cancelled, then
// writes any remaining changes.
func (a *app) cmdServe(ctx context.Context, args []string) error {
	fs := a.flagSet("serve")
	if err := parse(fs, args); err != nil {
		return err
	}

	srv := web.NewServer(a.cfg, a.tracker)

	var job *autosave.Job
	if a.cfg.Autosave != "" {
		var err error
		job, err = autosave.New(a.cfg.Autosave, a.cfg.DataFile, srv.Saver("autosave"))
		if err != nil {
			return err
		}
	} else {
		appLog.Info("autosave disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if job != nil {
		g.Go(func() error {
			job.Run(gctx)
			return nil
		})
	}
	err := g.Wait()

	if _, serr := srv.Saver("shutdown").SaveIfDirty(a.cfg.DataFile); serr != nil {
		appLog.Error("final save failed", serr, "path", a.cfg.DataFile)
		err = errors.Join(err, serr)
	}
	return err
}
