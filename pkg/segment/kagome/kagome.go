// Package kagome segments Japanese text into words with the kagome
// morphological analyser and the bundled IPA dictionary.
//
// It implements [tokenize.Segmenter] and is wired into a tokenizer with
//
//	tokenize.New(tokenize.WithSegmenter("ja", kagome.Name, kagome.Factory()))
package kagome

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/MrWong99/alteval/pkg/tokenize"
)

// Name identifies the segmenter in configuration, logs and errors.
const Name = "kagome"

// Compile-time interface assertion.
var _ tokenize.Segmenter = (*Segmenter)(nil)

// Option is a functional option for configuring a [Segmenter].
type Option func(*Segmenter)

// WithMode selects the kagome analysis mode. Default: [tokenizer.Normal].
// [tokenizer.Search] additionally splits long compounds.
func WithMode(mode tokenizer.TokenizeMode) Option {
	return func(s *Segmenter) {
		s.mode = mode
	}
}

// Segmenter splits Japanese text into surface forms. It is safe for
// concurrent use.
type Segmenter struct {
	t    *tokenizer.Tokenizer
	mode tokenizer.TokenizeMode
}

// New loads the IPA dictionary and returns a ready Segmenter.
func New(opts ...Option) (*Segmenter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("kagome: load ipa dictionary: %w", err)
	}
	s := &Segmenter{t: t, mode: tokenizer.Normal}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Factory returns a [tokenize.SegmenterFactory] that calls [New] with opts.
func Factory(opts ...Option) tokenize.SegmenterFactory {
	return func() (tokenize.Segmenter, error) {
		s, err := New(opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Segment implements [tokenize.Segmenter]. Whitespace-only morphemes are
// dropped.
func (s *Segmenter) Segment(text string) ([]string, error) {
	tokens := s.t.Analyze(text, s.mode)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		out = append(out, tok.Surface)
	}
	return out, nil
}
