package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store decodes the opaque config store (a hierarchical JSON/YAML tree)
// into a typed AppConfig, keeps the last-decoded raw tree available for
// redaction/restore round-trips, and optionally watches the backing file
// for hot reload.
//
// A failed decode never clears the previously-live config — Load leaves
// the prior Current() value untouched on error, so config validation
// errors prevent a save while the previous config remains live.
type Store struct {
	mu      sync.RWMutex
	path    string
	raw     map[string]any
	current *AppConfig
	log     *slog.Logger

	watcher *fsnotify.Watcher
	onChange func(*AppConfig)
}

func NewStore(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log, current: &AppConfig{}}
}

// Load reads and decodes the YAML file at s.path.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Internal(err, "reading config file %s", s.path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Validation("parsing config yaml: %v", err)
	}

	var decoded AppConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &decoded,
	})
	if err != nil {
		return Internal(err, "building config decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return Validation("decoding config: %v", err)
	}
	decoded.Defaults()

	s.mu.Lock()
	s.raw = raw
	s.current = &decoded
	s.mu.Unlock()
	return nil
}

// Current returns the last successfully decoded config.
func (s *Store) Current() *AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Redacted returns the current raw tree with sensitive fields scrubbed,
// safe to hand to an external collaborator (UI, logs).
func (s *Store) Redacted() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Redact(map[string]any(s.raw))
}

// Watch starts an fsnotify watch on the config file; on write events it
// reloads and, if successful, invokes onChange with the new config.
func (s *Store) Watch(onChange func(*AppConfig)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return Internal(err, "creating config watcher")
	}
	if err := w.Add(s.path); err != nil {
		w.Close()
		return Internal(err, "watching config file %s", s.path)
	}
	s.watcher = w
	s.onChange = onChange

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Load(); err != nil {
					s.log.Warn("config reload failed, keeping previous config", "error", err)
					continue
				}
				s.log.Info("config reloaded", "path", s.path)
				if s.onChange != nil {
					s.onChange(s.Current())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("config watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) String() string {
	return fmt.Sprintf("Store{path=%s}", s.path)
}
