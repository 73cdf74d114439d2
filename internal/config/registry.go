package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/alteval/pkg/lang"
	"github.com/MrWong99/alteval/pkg/tokenize"
)

// ErrSegmenterNotRegistered is returned by [Registry.TokenizerOptions] when a
// configured segmenter name has no registered factory.
var ErrSegmenterNotRegistered = errors.New("config: segmenter not registered")

// Registry maps segmenter names to their factories. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	segmenters map[string]tokenize.SegmenterFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		segmenters: make(map[string]tokenize.SegmenterFactory),
	}
}

// RegisterSegmenter registers a segmenter factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSegmenter(name string, factory tokenize.SegmenterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segmenters[name] = factory
}

// Segmenters returns the registered names in sorted order.
func (r *Registry) Segmenters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.segmenters))
}

// TokenizerOptions translates cfg into tokenizer options. Languages mapped
// to "none" get no segmenter. Returns [ErrSegmenterNotRegistered] for names
// without a factory.
func (r *Registry) TokenizerOptions(cfg TokenizerConfig) ([]tokenize.Option, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var opts []tokenize.Option
	for _, id := range slices.Sorted(maps.Keys(cfg.Segmenters)) {
		name := cfg.Segmenters[id]
		if name == SegmenterNone {
			continue
		}
		code, err := lang.Resolve(id)
		if err != nil {
			return nil, fmt.Errorf("config: segmenter language %q: %w", id, err)
		}
		factory, ok := r.segmenters[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q for language %q", ErrSegmenterNotRegistered, name, code)
		}
		opts = append(opts, tokenize.WithSegmenter(code, name, factory))
	}
	return opts, nil
}
