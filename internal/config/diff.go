package config

import (
	"maps"
	"slices"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// EvaluationChanged is true when the evaluator must be rebuilt: any
	// evaluation or tokenizer setting changed.
	EvaluationChanged bool

	// RestartRequired lists changed settings that only take effect after a
	// restart, by YAML path.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if !evaluationEqual(old.Evaluation, new.Evaluation) ||
		!maps.Equal(old.Tokenizer.Segmenters, new.Tokenizer.Segmenters) {
		d.EvaluationChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}

func evaluationEqual(a, b EvaluationConfig) bool {
	return slices.Equal(a.Languages, b.Languages) &&
		a.Workers == b.Workers &&
		a.CountSubstitutions == b.CountSubstitutions &&
		a.VisualizeErrors == b.VisualizeErrors &&
		a.NormalizeHypotheses == b.NormalizeHypotheses &&
		a.PhoneticSubstitutions == b.PhoneticSubstitutions &&
		a.PhoneticThreshold == b.PhoneticThreshold
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Empty reports whether the diff carries no effective change.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.EvaluationChanged && len(d.RestartRequired) == 0
}
