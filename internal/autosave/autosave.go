// Package autosave periodically flushes unsaved events to disk on a cron
// schedule.
package autosave

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "eventcal/internal/log"
)

// Saver is implemented by *tracker.Tracker.
type Saver interface {
	SaveIfDirty(path string) (bool, error)
}

type Job struct {
	spec  string
	path  string
	saver Saver
	cron  *cron.Cron
}

// New validates spec (standard five-field cron or a descriptor such as
// "@every 5m") and prepares a job that saves to path.
func New(spec, path string, saver Saver) (*Job, error) {
	if spec == "" {
		return nil, errors.New("autosave: empty schedule")
	}
	if path == "" {
		return nil, errors.New("autosave: empty data path")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("autosave: schedule %q: %w", spec, err)
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	j := &Job{spec: spec, path: path, saver: saver, cron: c}
	if _, err := c.AddFunc(spec, j.Tick); err != nil {
		return nil, fmt.Errorf("autosave: schedule %q: %w", spec, err)
	}
	return j, nil
}

// Tick saves once if there are unsaved changes.
func (j *Job) Tick() {
	saved, err := j.saver.SaveIfDirty(j.path)
	if err != nil {
		appLog.Error("autosave failed", err, "path", j.path)
		return
	}
	if saved {
		appLog.Info("autosave wrote events", "path", j.path)
	}
}

// Run starts the schedule and blocks until ctx is done. Pending changes are
// flushed once more before it returns.
func (j *Job) Run(ctx context.Context) {
	appLog.Info("autosave scheduled", "spec", j.spec, "path", j.path)
	j.cron.Start()

	<-ctx.Done()

	<-j.cron.Stop().Done()
	j.Tick()
}

// cronLogger routes cron's own diagnostics into the process logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
