// Package settings holds the run configuration read by the reporter on every
// cycle: where to publish, with which key, how often, and whether the
// service should start at login.
package settings

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const (
	KeyURL            = "url"
	KeyAuthKey        = "auth_key"
	KeyUpdateInterval = "update_interval_secs"
	KeyServiceEnabled = "service_enabled"

	DefaultURL          = "http://127.0.0.1:1239/api/status"
	DefaultIntervalSecs = 5

	defaultDir      = ".config/livestatus"
	defaultFileName = "settings.toml"
	reloadDebounce  = 100 * time.Millisecond
)

// Values is the persisted form of the settings.
type Values struct {
	URL                string `toml:"url" yaml:"url"`
	AuthKey            string `toml:"auth_key" yaml:"auth_key"`
	UpdateIntervalSecs int    `toml:"update_interval_secs" yaml:"update_interval_secs"`
	ServiceEnabled     bool   `toml:"service_enabled" yaml:"service_enabled"`
}

// Defaults returns the values used when the file or a key is missing.
func Defaults() Values {
	return Values{
		URL:                DefaultURL,
		UpdateIntervalSecs: DefaultIntervalSecs,
	}
}

// Store is a concurrency-safe view of the settings file. Reads always see
// the most recently loaded or set values.
type Store struct {
	path string

	mu       sync.RWMutex
	values   Values
	onChange []func(Values)
}

// DefaultPath returns ~/.config/livestatus/settings.toml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultDir, defaultFileName), nil
}

// Open loads the store from path. A missing file yields the defaults; the
// file is only created on Save.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: Defaults()}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a store that is never persisted.
func NewMemory(v Values) *Store {
	return &Store{values: v}
}

// Path returns the backing file, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Values returns a snapshot of the current values.
func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

func (s *Store) URL() string {
	return s.Values().URL
}

func (s *Store) AuthKey() string {
	return s.Values().AuthKey
}

// IntervalSecs returns the update interval, clamped to at least one second.
func (s *Store) IntervalSecs() int {
	secs := s.Values().UpdateIntervalSecs
	if secs < 1 {
		return 1
	}
	return secs
}

// Interval is IntervalSecs as a duration.
func (s *Store) Interval() time.Duration {
	return time.Duration(s.IntervalSecs()) * time.Second
}

func (s *Store) ServiceEnabled() bool {
	return s.Values().ServiceEnabled
}

// IsConfigured reports whether both the endpoint and the key are set.
func (s *Store) IsConfigured() bool {
	v := s.Values()
	return v.URL != "" && v.AuthKey != ""
}

// Keys lists the keys accepted by Set.
func Keys() []string {
	keys := []string{KeyURL, KeyAuthKey, KeyUpdateInterval, KeyServiceEnabled}
	sort.Strings(keys)
	return keys
}

// Set parses value for key and updates the store in memory. Call Save to
// persist the change.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	v := s.values

	switch key {
	case KeyURL:
		v.URL = strings.TrimSpace(value)
	case KeyAuthKey:
		v.AuthKey = strings.TrimSpace(value)
	case KeyUpdateInterval:
		secs, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if secs < 1 {
			s.mu.Unlock()
			return fmt.Errorf("%s must be at least 1, got %d", key, secs)
		}
		v.UpdateIntervalSecs = secs
	case KeyServiceEnabled:
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		v.ServiceEnabled = enabled
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}

	s.values = v
	s.mu.Unlock()

	s.notify(v)
	return nil
}

// SetServiceEnabled toggles the login autostart flag.
func (s *Store) SetServiceEnabled(enabled bool) {
	s.mu.Lock()
	s.values.ServiceEnabled = enabled
	v := s.values
	s.mu.Unlock()

	s.notify(v)
}

// Save writes the current values to the backing file, replacing it
// atomically.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	data, err := encode(s.path, s.Values())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Reload re-reads the backing file. On a parse error the previous values
// are kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}

	v, err := load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.values != v
	s.values = v
	s.mu.Unlock()

	if changed {
		s.notify(v)
	}
	return nil
}

// OnChange registers cb to run after the values change. Register callbacks
// before calling Watch.
func (s *Store) OnChange(cb func(Values)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, cb)
	s.mu.Unlock()
}

func (s *Store) notify(v Values) {
	s.mu.RLock()
	callbacks := append([]func(Values){}, s.onChange...)
	s.mu.RUnlock()

	for _, cb := range callbacks {
		cb(v)
	}
}

// Watch reloads the store whenever the backing file is written, until ctx
// is done. Edits made with `livestatus config set` reach a running daemon
// this way.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("in-memory settings cannot be watched")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	// The directory is watched because Save replaces the file by rename.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	name := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := s.Reload(); err != nil {
					log.Printf("Warning: keeping previous settings: %v", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: settings watcher: %v", err)
		}
	}
}

// String renders the settings with the key masked.
func (v Values) String() string {
	key := "(not set)"
	if v.AuthKey != "" {
		key = "********"
	}
	return fmt.Sprintf(`Settings:
  %s = %s
  %s = %s
  %s = %d
  %s = %v`,
		KeyURL, v.URL,
		KeyAuthKey, key,
		KeyUpdateInterval, v.UpdateIntervalSecs,
		KeyServiceEnabled, v.ServiceEnabled,
	)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func load(path string) (Values, error) {
	v := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return v, fmt.Errorf("failed to read settings: %w", err)
	}

	if isYAML(path) {
		if err := yaml.Unmarshal(data, &v); err != nil {
			return v, fmt.Errorf("failed to decode YAML settings: %w", err)
		}
		return v, nil
	}

	if _, err := toml.Decode(string(data), &v); err != nil {
		return v, fmt.Errorf("failed to decode TOML settings: %w", err)
	}
	return v, nil
}

func encode(path string, v Values) ([]byte, error) {
	if isYAML(path) {
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode YAML settings: %w", err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode TOML settings: %w", err)
	}
	return buf.Bytes(), nil
}
