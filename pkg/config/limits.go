package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/finvault/finvault/pkg/observability"
	"github.com/finvault/finvault/pkg/ratelimit"
)

// LimitsFile is the YAML shape of a rate-limit override file. Only the
// fields that are set override the profile defaults.
type LimitsFile struct {
	Window  string         `yaml:"window"`
	Default int            `yaml:"default"`
	Kinds   map[string]int `yaml:"kinds"`
}

// LoadLimits reads a YAML override file and applies it onto cfg.
// Overrides are merged, not replaced: kinds absent from the file keep
// their current limit.
func LoadLimits(path string, cfg *ratelimit.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading limits file: %w", err)
	}

	var file LimitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing limits file: %w", err)
	}

	if file.Window != "" {
		window, err := time.ParseDuration(file.Window)
		if err != nil {
			return fmt.Errorf("parsing window duration: %w", err)
		}
		cfg.SetWindow(window)
	}
	if file.Default > 0 {
		cfg.SetDefaultMax(file.Default)
	}
	for kind, max := range file.Kinds {
		if max > 0 {
			cfg.SetMax(kind, max)
		}
	}

	return nil
}

// WatchLimits reloads the override file whenever it changes. It returns
// a stop function that releases the watcher. A file that fails to parse
// is logged and skipped, keeping the last good limits in effect.
func WatchLimits(path string, cfg *ratelimit.Config, logger *observability.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating limits watcher: %w", err)
	}

	// Watch the directory rather than the file so editors that replace
	// the file on save do not break the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching limits directory: %w", err)
	}

	target := filepath.Clean(path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := LoadLimits(path, cfg); err != nil {
					logger.WithError(err).Warn("Failed to reload rate limit overrides")
					continue
				}
				logger.WithField("path", path).Info("Reloaded rate limit overrides")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("Rate limit watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
