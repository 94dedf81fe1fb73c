package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"eventcal/internal/codec"
	"eventcal/internal/config"
	appLog "eventcal/internal/log"
	"eventcal/internal/tracker"
)

const version = "0.1.0"

// flagConfig holds global flag values; they override the config file.
type flagConfig struct {
	configPath string
	dataFile   string
	listen     string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	_ = appLog.Sync()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		if conf == nil {
			return 1
		}
	}
	if flags.dataFile != "" {
		conf.DataFile = flags.dataFile
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.Log.Level = flags.logLevel
	}
	if err := appLog.Configure(appLog.Level(conf.Log.Level), conf.Log.Format); err != nil {
		fmt.Fprintln(stderr, "invalid log settings:", err)
		return 2
	}

	appLog.Debug("effective config",
		"version", version,
		"config", flags.configPath,
		"data_file", conf.DataFile,
		"export_dir", conf.ExportDir,
		"listen", conf.Listen,
		"autosave", conf.Autosave,
		"basic_auth", conf.BasicAuth != nil,
	)

	tr, err := tracker.Open(conf.DataFile)
	if err != nil {
		var ferr *codec.FormatError
		if !errors.As(err, &ferr) {
			appLog.Error("failed to load events", err, "path", conf.DataFile)
			return 1
		}
		// Unreadable header: start empty rather than refuse to run.
		appLog.Warn("ignoring unreadable data file", "path", conf.DataFile, "error", err.Error())
	}

	a := &app{cfg: conf, tracker: tr, out: stdout, errOut: stderr}
	return a.dispatch(ctx, rest[0], rest[1:])
}

func parseFlags(args []string, stderr io.Writer) (flagConfig, []string, error) {
	var cfg flagConfig

	fs := flag.NewFlagSet("eventcal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }

	fs.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	fs.StringVar(&cfg.dataFile, "data", "", "Event database file (overrides config if set)")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address for serve (overrides config if set)")
	fs.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error (overrides config if set)")

	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	return cfg, fs.Args(), nil
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "eventcal", "config.yaml")
	}
	return "eventcal.yaml"
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: eventcal [-config file] [-data file] [-listen addr] [-log-level lvl] <command> [flags]

commands:
  add         create an event
  edit        change an event
  delete      delete an event
  list        list events, optionally filtered
  show        show one event
  stats       summary statistics
  export      write events as CSV
  export-ics  write events as iCalendar
  import-ics  add events from an .ics file
  serve       run the HTTP API with scheduled autosave
`)
}
