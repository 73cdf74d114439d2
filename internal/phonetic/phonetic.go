// Package phonetic decides whether a misrecognised word sounds like the word
// it replaced.
//
// Two words sound alike when either
//
//  1. their Double Metaphone codes overlap and their Jaro-Winkler similarity
//     (case-insensitive) reaches the phonetic threshold, or
//
//  2. their codes do not overlap but their Jaro-Winkler similarity reaches
//     the higher fuzzy threshold.
//
// Double Metaphone is tuned for English and other Latin-script languages;
// words without Latin consonants produce no codes and can only pass the fuzzy
// check.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for words whose
// phonetic codes overlap. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for words whose
// phonetic codes do not overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher judges sound-alike word pairs. It is read-only after construction
// and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Matcher configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SoundAlike reports whether hyp sounds like ref, together with their
// Jaro-Winkler similarity. Identical words (ignoring case) always sound
// alike with score 1.
func (m *Matcher) SoundAlike(ref, hyp string) (score float64, ok bool) {
	a := strings.ToLower(strings.TrimSpace(ref))
	b := strings.ToLower(strings.TrimSpace(hyp))
	if a == "" || b == "" {
		return 0, false
	}
	if a == b {
		return 1, true
	}

	score = matchr.JaroWinkler(a, b, false)
	if codesOverlap(codes(a), codes(b)) {
		return score, score >= m.phoneticThreshold
	}
	return score, score >= m.fuzzyThreshold
}

// CountSoundAlike returns how many positional pairs of refs and hyps sound
// alike. Extra elements of the longer slice are ignored.
func (m *Matcher) CountSoundAlike(refs, hyps []string) int {
	n := 0
	for i := range min(len(refs), len(hyps)) {
		if _, ok := m.SoundAlike(refs[i], hyps[i]); ok {
			n++
		}
	}
	return n
}

// codes returns the non-empty Double Metaphone codes of word. Apostrophes
// are dropped so that contractions encode like their spoken form.
func codes(word string) []string {
	word = strings.ReplaceAll(word, "'", "")
	p, s := matchr.DoubleMetaphone(word)
	out := make([]string, 0, 2)
	if p != "" {
		out = append(out, p)
	}
	if s != "" && s != p {
		out = append(out, s)
	}
	return out
}

func codesOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
