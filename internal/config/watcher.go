package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher reloads a config file when its content changes and reports
// effective changes to a callback.
//
// Changes are detected by polling the modification time and comparing the
// raw bytes. Edits that leave the parsed config equivalent (comments, key
// order) are adopted without calling the callback. A file that fails to
// load or validate is logged and the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	// checkMu serialises polls and explicit reloads.
	checkMu sync.Mutex
	mu      sync.Mutex
	current *Config
	raw     []byte
	mtime   time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Default: 5s.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path and starts polling it. onChange may be nil.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, raw, mtime, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.raw, w.mtime = cfg, raw, mtime

	w.wg.Go(w.poll)
	return w, nil
}

// Current returns the last config that loaded successfully.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Reload checks the file now, regardless of its modification time. It
// returns the load error, if any; the current config is kept in that case.
func (w *Watcher) Reload() error {
	return w.check(true)
}

// Stop ends polling. When it returns, no callback is running or will run
// from the poll loop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if err := w.check(false); err != nil {
				slog.Warn("config: reload failed, keeping previous configuration", "path", w.path, "err", err)
			}
		}
	}
}

func (w *Watcher) check(force bool) error {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	if !force {
		info, err := os.Stat(w.path)
		if err != nil {
			return err
		}
		w.mu.Lock()
		unchanged := info.ModTime().Equal(w.mtime)
		w.mu.Unlock()
		if unchanged {
			return nil
		}
	}

	cfg, raw, mtime, err := w.read()
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.current
	sameBytes := bytes.Equal(raw, w.raw)
	w.mtime = mtime
	if sameBytes {
		w.mu.Unlock()
		return nil
	}
	w.current, w.raw = cfg, raw
	w.mu.Unlock()

	d := Diff(old, cfg)
	if d.Empty() {
		slog.Debug("config: file changed without effect", "path", w.path)
		return nil
	}
	slog.Info("config: configuration reloaded",
		"path", w.path,
		"log_level_changed", d.LogLevelChanged,
		"evaluation_changed", d.EvaluationChanged,
		"restart_required", d.RestartRequired,
	)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return nil
}

// read loads and validates the file, returning the config with the bytes
// and modification time it was parsed from.
func (w *Watcher) read() (*Config, []byte, time.Time, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, nil, time.Time{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	return cfg, buf.Bytes(), info.ModTime(), nil
}
