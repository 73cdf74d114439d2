package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/alteval/pkg/lang"
)

// KnownSegmenters lists the segmenter names the binary registers.
// Used by [Validate] to warn about unrecognised names.
var KnownSegmenters = []string{"kagome", SegmenterNone}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Evaluation
	ev := cfg.Evaluation
	for i, id := range ev.Languages {
		if _, err := lang.Resolve(id); err != nil {
			errs = append(errs, fmt.Errorf("evaluation.languages[%d] %q: %w", i, id, err))
		}
	}
	if ev.Workers < 0 {
		errs = append(errs, fmt.Errorf("evaluation.workers %d must not be negative", ev.Workers))
	}
	if ev.PhoneticThreshold < 0 || ev.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("evaluation.phonetic_threshold %.2f is out of range [0, 1]", ev.PhoneticThreshold))
	}

	// Tokenizer
	for id, name := range cfg.Tokenizer.Segmenters {
		if _, err := lang.Resolve(id); err != nil {
			errs = append(errs, fmt.Errorf("tokenizer.segmenters: language %q: %w", id, err))
		}
		if name == "" {
			errs = append(errs, fmt.Errorf("tokenizer.segmenters.%s: name is required; use %q to disable", id, SegmenterNone))
			continue
		}
		validateSegmenterName(id, name)
	}

	// Server
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	return errors.Join(errs...)
}

// validateSegmenterName logs a warning if name is not one of
// [KnownSegmenters]. Third-party builds may register more.
func validateSegmenterName(language, name string) {
	if slices.Contains(KnownSegmenters, name) {
		return
	}
	slog.Warn("config: unknown segmenter name, may be a typo",
		"language", language,
		"name", name,
		"known", KnownSegmenters,
	)
}
