package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	appLog "eventcal/internal/log"
)

const (
	defaultDataFile  = "events.dat"
	defaultExportDir = "exports"
	defaultListen    = "127.0.0.1:8080"
	defaultAutosave  = "@every 5m"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig selects verbosity and encoding for the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// DataFile is the binary event database.
	DataFile string `yaml:"data_file" json:"data_file"`

	// ExportDir receives CSV and ICS exports when the caller gives a bare
	// file name.
	ExportDir string `yaml:"export_dir" json:"export_dir"`

	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Autosave is a cron spec (e.g. "*/5 * * * *" or "@every 5m") on which
	// unsaved changes are written to DataFile while serving. Empty disables it.
	Autosave string `yaml:"autosave" json:"autosave"`

	Log LogConfig `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health and /metrics.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataFile:  defaultDataFile,
		ExportDir: defaultExportDir,
		Listen:    defaultListen,
		Autosave:  defaultAutosave,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Normalize fills in zero values so partially written files still behave.
// Autosave is left alone: an explicit empty string turns it off.
func (c *Config) Normalize() {
	if c.DataFile == "" {
		c.DataFile = defaultDataFile
	}
	if c.ExportDir == "" {
		c.ExportDir = defaultExportDir
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}

	if _, err := appLog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		c.Log.Level = "info"
	}
	switch strings.ToLower(c.Log.Format) {
	case "json":
		c.Log.Format = "json"
	default:
		c.Log.Format = "console"
	}

	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// ExportPath resolves name against ExportDir unless it already carries a
// directory component.
func (c *Config) ExportPath(name string) string {
	if name == "" || filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(c.ExportDir, name)
}

// Load loads configuration from the given YAML path.
//
// A missing file is a first run: the defaults are written with 0600 perms
// and returned. An existing file is unmarshalled over the defaults and
// normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unwritable config is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically via a temp file in the same directory,
// creating the directory (0700) if needed. The final file is 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
