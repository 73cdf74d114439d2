// Package config provides the configuration schema, loader, segmenter
// registry and file watcher for alteval.
package config

import "log/slog"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its [slog.Level]. Unknown or empty levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SegmenterNone disables the segmenter of a language that has one by
// default.
const SegmenterNone = "none"

// Config is the root configuration structure for alteval.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// fields missing from the file keep their [Default] values.
type Config struct {
	LogLevel   LogLevel         `yaml:"log_level"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// EvaluationConfig holds the metric engine settings.
type EvaluationConfig struct {
	// Languages is applied to every item that names no language of its
	// own. One entry is broadcast to all items.
	Languages []string `yaml:"languages"`

	// Workers bounds concurrent tokenization and alignment. Zero selects
	// GOMAXPROCS.
	Workers int `yaml:"workers"`

	// CountSubstitutions credits tags shared by substituted tokens as
	// substitutions. When false they count as a deletion plus an insertion.
	CountSubstitutions bool `yaml:"count_substitutions"`

	// VisualizeErrors renders an HTML diff per item.
	VisualizeErrors bool `yaml:"visualize_errors"`

	// NormalizeHypotheses applies the lyrics normalization pre-pass to every
	// hypothesis.
	NormalizeHypotheses bool `yaml:"normalize_hypotheses"`

	// PhoneticSubstitutions enables sound-alike analysis of substituted
	// words.
	PhoneticSubstitutions bool `yaml:"phonetic_substitutions"`

	// PhoneticThreshold is the minimum Jaro-Winkler similarity of
	// sound-alike words whose phonetic codes overlap.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
}

// TokenizerConfig configures language routes.
type TokenizerConfig struct {
	// Segmenters maps a language to the registered segmenter that splits
	// its unspaced text, e.g. ja: kagome. Use "none" to fall back to
	// per-character splitting.
	Segmenters map[string]string `yaml:"segmenters"`
}

// ServerConfig holds network settings for the HTTP service.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds paths to TLS certificate and key files.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// TelemetryConfig holds the service identity reported in telemetry.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Evaluation: EvaluationConfig{
			Languages:          []string{"en"},
			CountSubstitutions: true,
			PhoneticThreshold:  0.70,
		},
		Tokenizer: TokenizerConfig{
			Segmenters: map[string]string{"ja": "kagome"},
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "alteval",
		},
	}
}
