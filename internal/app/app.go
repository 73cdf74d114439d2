// Package app wires the alteval subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds the tokenizer and
// evaluator from the config, Apply swaps them when the config file changes,
// and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithMetrics,
// WithAligner, WithLevelVar). When an option is not provided, New uses the
// defaults of the underlying packages.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/alteval/internal/config"
	"github.com/MrWong99/alteval/internal/health"
	"github.com/MrWong99/alteval/internal/observe"
	"github.com/MrWong99/alteval/internal/phonetic"
	"github.com/MrWong99/alteval/pkg/align"
	"github.com/MrWong99/alteval/pkg/evaluate"
	"github.com/MrWong99/alteval/pkg/lang"
	"github.com/MrWong99/alteval/pkg/tokenize"
	"github.com/MrWong99/alteval/pkg/types"
)

// App owns the evaluator and its configuration. It is safe for concurrent
// use; in-flight evaluations keep the evaluator they started with when the
// config is reloaded.
type App struct {
	registry *config.Registry
	metrics  *observe.Metrics
	aligner  align.Aligner
	level    *slog.LevelVar

	mu        sync.RWMutex
	cfg       *config.Config
	tokenizer *tokenize.Tokenizer
	evaluator *evaluate.Evaluator

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithMetrics sets the telemetry instruments passed to every evaluator.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithAligner replaces the default Levenshtein aligner.
func WithAligner(al align.Aligner) Option {
	return func(a *App) { a.aligner = al }
}

// WithLevelVar lets [App.Apply] adjust the log level of the handler that
// reads lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// New creates an App from cfg. Segmenter names in cfg are resolved against
// registry.
func New(cfg *config.Config, registry *config.Registry, opts ...Option) (*App, error) {
	if registry == nil {
		registry = config.NewRegistry()
	}
	a := &App{registry: registry}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	tok, ev, err := a.build(cfg)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.tokenizer = tok
	a.evaluator = ev
	if a.level != nil {
		a.level.Set(cfg.LogLevel.Level())
	}
	return a, nil
}

// build constructs a tokenizer and an evaluator for cfg.
func (a *App) build(cfg *config.Config) (*tokenize.Tokenizer, *evaluate.Evaluator, error) {
	tokOpts, err := a.registry.TokenizerOptions(cfg.Tokenizer)
	if err != nil {
		return nil, nil, fmt.Errorf("app: tokenizer: %w", err)
	}
	tok := tokenize.New(tokOpts...)

	ec := cfg.Evaluation
	evOpts := []evaluate.Option{
		evaluate.WithTokenizer(tok),
		evaluate.WithWorkers(ec.Workers),
		evaluate.WithCountSubstitutions(ec.CountSubstitutions),
		evaluate.WithMetrics(a.metrics),
	}
	if a.aligner != nil {
		evOpts = append(evOpts, evaluate.WithAligner(a.aligner))
	}
	if ec.PhoneticSubstitutions {
		evOpts = append(evOpts, evaluate.WithSoundAlike(
			phonetic.New(phonetic.WithPhoneticThreshold(ec.PhoneticThreshold)),
		))
	}
	return tok, evaluate.New(evOpts...), nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Tokenizer returns the active tokenizer.
func (a *App) Tokenizer() *tokenize.Tokenizer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tokenizer
}

// Evaluator returns the active evaluator.
func (a *App) Evaluator() *evaluate.Evaluator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.evaluator
}

// Request is one evaluation request. Nil option fields fall back to the
// evaluation settings of the active config.
type Request struct {
	References          []string
	Hypotheses          []string
	Languages           []string
	VisualizeErrors     *bool
	NormalizeHypotheses *bool
}

// Evaluate scores req with the active evaluator.
func (a *App) Evaluate(ctx context.Context, req Request) (*evaluate.Result, error) {
	a.mu.RLock()
	ev, ec := a.evaluator, a.cfg.Evaluation
	a.mu.RUnlock()

	in := evaluate.Input{
		References:          req.References,
		Hypotheses:          req.Hypotheses,
		Languages:           req.Languages,
		VisualizeErrors:     ec.VisualizeErrors,
		NormalizeHypotheses: ec.NormalizeHypotheses,
	}
	if len(in.Languages) == 0 {
		in.Languages = ec.Languages
	}
	if req.VisualizeErrors != nil {
		in.VisualizeErrors = *req.VisualizeErrors
	}
	if req.NormalizeHypotheses != nil {
		in.NormalizeHypotheses = *req.NormalizeHypotheses
	}
	return ev.ComputeMetrics(ctx, in)
}

// Tokenize splits text into tagged tokens with the active tokenizer and
// returns them with the resolved language code. An empty language selects
// the first configured evaluation language.
func (a *App) Tokenize(text, language string) ([]types.Token, string, error) {
	a.mu.RLock()
	tok, langs := a.tokenizer, a.cfg.Evaluation.Languages
	a.mu.RUnlock()

	if language == "" {
		language = evaluate.DefaultLanguage
		if len(langs) > 0 {
			language = langs[0]
		}
	}
	code, err := lang.Resolve(language)
	if err != nil {
		return nil, "", fmt.Errorf("app: %w", err)
	}
	tokens, err := tok.Tokenize(text, code)
	if err != nil {
		return nil, "", err
	}
	return tokens, code, nil
}

// Apply reacts to a configuration change. It is shaped to be passed to
// [config.NewWatcher]. A new config that cannot be built is rejected and the
// previous one stays active.
func (a *App) Apply(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(d.NewLogLevel.Level())
		slog.Info("app: log level changed", "level", d.NewLogLevel)
	}

	for _, path := range d.RestartRequired {
		slog.Warn("app: setting changed but requires a restart", "setting", path)
	}

	if !d.EvaluationChanged {
		a.mu.Lock()
		a.cfg = new
		a.mu.Unlock()
		return
	}

	tok, ev, err := a.build(new)
	if err != nil {
		slog.Error("app: rejected configuration change", "err", err)
		return
	}
	a.mu.Lock()
	a.cfg = new
	a.tokenizer = tok
	a.evaluator = ev
	a.mu.Unlock()
	slog.Info("app: evaluator rebuilt",
		"workers", new.Evaluation.Workers,
		"phonetic", new.Evaluation.PhoneticSubstitutions,
	)
}

// ReadinessChecks returns one [health.Checker] per configured segmenter
// route. Each check tokenizes a short probe, which initialises the
// segmenter on first use.
func (a *App) ReadinessChecks() []health.Checker {
	cfg := a.Config()
	checks := []health.Checker{{
		Name: "tokenizer/" + evaluate.DefaultLanguage,
		Check: func(context.Context) error {
			_, err := a.Tokenizer().Plain(probeText(evaluate.DefaultLanguage), evaluate.DefaultLanguage)
			return err
		},
	}}
	for _, id := range slices.Sorted(maps.Keys(cfg.Tokenizer.Segmenters)) {
		if cfg.Tokenizer.Segmenters[id] == config.SegmenterNone {
			continue
		}
		code, err := lang.Resolve(id)
		if err != nil || code == evaluate.DefaultLanguage {
			continue
		}
		checks = append(checks, health.Checker{
			Name: "tokenizer/" + code,
			Check: func(context.Context) error {
				_, err := a.Tokenizer().Plain(probeText(code), code)
				return err
			},
		})
	}
	return checks
}

// probeText returns a short text that exercises the segmenter of code.
func probeText(code string) string {
	switch code {
	case "ja":
		return "日本語"
	case "zh", lang.CJK:
		return "中文"
	case "th":
		return "ภาษาไทย"
	default:
		return "ready"
	}
}

// AddCloser registers fn to run during [App.Shutdown]. Closers run in the
// order they were added.
func (a *App) AddCloser(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Shutdown runs the registered closers. It respects the context deadline:
// if ctx expires before all closers finish, remaining closers are skipped
// and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.mu.RLock()
		closers := a.closers
		a.mu.RUnlock()

		slog.Info("app: shutting down", "closers", len(closers))
		for i, closer := range closers {
			select {
			case <-ctx.Done():
				slog.Warn("app: shutdown deadline exceeded", "remaining", len(closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("app: closer error", "index", i, "err", err)
			}
		}
		slog.Info("app: shutdown complete")
	})
	return shutdownErr
}
