// Package tokenize turns raw lyrics into tagged tokens.
//
// A [Tokenizer] processes text line by line:
//
//  1. Symbols that are neither word characters, whitespace nor punctuation
//     are replaced by spaces and the text is NFC-normalised. Numbers other
//     than decimal digits and letter numbers (², ½) count as symbols.
//
//  2. The text is split on newline runs. A single newline emits a line-break
//     token; two or more emit a line-break token followed by a section-break
//     token. Lines containing only whitespace count as empty.
//
//  3. Each line is punctuation-normalised and word-tokenized with the rules
//     of its language. Apostrophes that the word tokenizer would misread as
//     quotes are protected, and German contractions ("geht's", "wie'n") are
//     split afterwards.
//
//  4. Characters of scripts written without spaces (Han, Kana, Thai, ...)
//     become single-character tokens unless a [Segmenter] is configured for
//     the language, and adjacent letters of different scripts are split.
//
//  5. Every plain token is classified into a [types.Token].
//
// Language routes (normaliser, word tokenizer, optional segmenter) are built
// on first use and cached on the Tokenizer. A Tokenizer is safe for
// concurrent use.
package tokenize

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/alteval/pkg/lang"
	"github.com/MrWong99/alteval/pkg/types"
)

const aposPlaceholder = "@@apos@@"

var (
	nonTextRe   = regexp.MustCompile(`[^\p{L}\p{M}\p{Nd}\p{Nl}\p{P}` + spaceClass + `]`)
	blankLineRe = regexp.MustCompile(`\n[\t\v\f\r \x{85}\p{Z}]+\n`)
	newlinesRe  = regexp.MustCompile(`\n+`)
)

// Option is a functional option for configuring a [Tokenizer].
type Option func(*Tokenizer)

// WithSegmenter routes text in language (an ISO 639-1 code) through the
// segmenter built by factory instead of splitting it into single characters.
// name identifies the segmenter in errors and logs.
func WithSegmenter(language, name string, factory SegmenterFactory) Option {
	return func(t *Tokenizer) {
		t.segmenters[strings.ToLower(language)] = segmenterRoute{name: name, factory: factory}
	}
}

// Tokenizer converts lyrics into tagged tokens. The zero value is not
// usable; construct one with [New].
type Tokenizer struct {
	segmenters map[string]segmenterRoute

	mu     sync.Mutex
	routes map[string]*route
}

// New returns a Tokenizer configured with the supplied options.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		segmenters: make(map[string]segmenterRoute),
		routes:     make(map[string]*route),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Tokenize splits text into tagged tokens using the rules of language, which
// may be any identifier accepted by [lang.Resolve].
//
// Empty input yields an empty slice. An unresolvable language fails with
// [lang.ErrUnsupportedLanguage]; a segmenter that cannot be initialised
// fails with [ErrDependencyUnavailable].
func (t *Tokenizer) Tokenize(text, language string) ([]types.Token, error) {
	plain, err := t.Plain(text, language)
	if err != nil {
		return nil, err
	}
	return Classify(plain), nil
}

// Plain is like [Tokenizer.Tokenize] but returns the untagged token texts,
// with line breaks as "\n" and section breaks as "\n\n".
func (t *Tokenizer) Plain(text, language string) ([]string, error) {
	code, err := lang.Resolve(language)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	r, err := t.route(code)
	if err != nil {
		return nil, err
	}
	return r.split(text)
}

func (t *Tokenizer) route(code string) (*route, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.routes[code]; ok {
		return r, r.err
	}

	r := &route{
		language: code,
		punct:    newPunctNormalizer(code),
		words:    newWordTokenizer(code),
	}
	if sr, ok := t.segmenters[code]; ok {
		r.segmenterName = sr.name
		seg, err := buildSegmenter(sr)
		if err != nil {
			r.err = fmt.Errorf("%w: %s segmenter for language %q: %w", ErrDependencyUnavailable, sr.name, code, err)
		}
		r.segmenter = seg
	}
	t.routes[code] = r

	slog.Debug("tokenize: language route initialised",
		"language", code, "segmenter", r.segmenterName, "err", r.err)
	return r, r.err
}

func buildSegmenter(sr segmenterRoute) (Segmenter, error) {
	if sr.factory == nil {
		return nil, errors.New("no factory")
	}
	seg, err := sr.factory()
	if err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, errors.New("factory returned no segmenter")
	}
	return seg, nil
}

// route bundles the per-language processing stages.
type route struct {
	language      string
	punct         *punctNormalizer
	words         *wordTokenizer
	segmenter     Segmenter
	segmenterName string
	err           error
}

func (r *route) split(text string) ([]string, error) {
	text = nonTextRe.ReplaceAllString(text, " ")
	text = norm.NFC.String(text)
	text = strings.TrimRight(text, "\n")
	text = blankLineRe.ReplaceAllString(text, "\n\n")

	var out []string
	pos := 0
	for _, loc := range newlinesRe.FindAllStringIndex(text, -1) {
		line, err := r.splitLine(text[pos:loc[0]])
		if err != nil {
			return nil, err
		}
		out = append(out, line...)
		out = append(out, "\n")
		if loc[1]-loc[0] >= 2 {
			out = append(out, "\n\n")
		}
		pos = loc[1]
	}
	line, err := r.splitLine(text[pos:])
	if err != nil {
		return nil, err
	}
	return append(out, line...), nil
}

func (r *route) splitLine(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	s, err := r.tokenizeWords(line)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, field := range strings.Fields(s) {
		if r.segmenter != nil && hasNoSpace(field) {
			words, err := r.segmenter.Segment(field)
			if err != nil {
				return nil, fmt.Errorf("tokenize: %s segmenter: %w", r.segmenterName, err)
			}
			for _, w := range words {
				out = append(out, strings.Fields(splitSegmented(w))...)
			}
			continue
		}
		out = append(out, strings.Fields(splitScripts(splitNoSpace(field)))...)
	}
	return out, nil
}

// tokenizeWords runs the language-specific normaliser and word tokenizer over
// one non-empty line and returns space-separated tokens.
func (r *route) tokenizeWords(line string) (string, error) {
	// The word tokenizer only finds sentence-final punctuation in complete
	// sentences.
	synthetic := !endsWithPunctuation(line)
	if synthetic {
		line += " ."
	}

	line = r.punct.normalize(line)
	switch r.language {
	case "en", "fr", "it":
		line = protectBoundaryApostrophes(line)
	default:
		line = strings.ReplaceAll(line, "'", aposPlaceholder)
	}

	line = r.words.tokenize(strings.TrimSpace(line))

	if synthetic {
		trimmed, ok := strings.CutSuffix(line, " .")
		if !ok {
			return "", fmt.Errorf("tokenize: sentence-final period lost in %q", line)
		}
		line = trimmed
	}

	line = strings.ReplaceAll(line, aposPlaceholder, "'")
	if r.language == "de" {
		line = splitGermanContractions(line)
	}
	return line, nil
}

// endsWithPunctuation reports whether line ends in a non-word character
// followed by at least one whitespace character.
func endsWithPunctuation(line string) bool {
	runes := []rune(line)
	n := len(runes)
	ws := 0
	for ws < n && unicode.IsSpace(runes[n-1-ws]) {
		ws++
	}
	switch {
	case ws == 0:
		return false
	case ws >= 2:
		return true
	default:
		return n >= 2 && !types.IsWordRune(runes[n-2])
	}
}

// protectBoundaryApostrophes replaces apostrophes that touch exactly one word
// character (leading or trailing elisions such as "nothin'") with the
// placeholder. Apostrophes inside words are left for the word tokenizer.
func protectBoundaryApostrophes(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if r == '\'' {
			prevWord := i > 0 && types.IsWordRune(runes[i-1])
			nextWord := i+1 < len(runes) && types.IsWordRune(runes[i+1])
			if prevWord != nextWord {
				b.WriteString(aposPlaceholder)
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitGermanContractions detaches "'s" after any stem and "'n" after
// "wie" or "für", case-insensitively.
func splitGermanContractions(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if r == '\'' && i+1 < len(runes) {
			next := unicode.ToLower(runes[i+1])
			boundary := i+2 >= len(runes) || !types.IsWordRune(runes[i+2])
			switch {
			case next == 's' && boundary:
				b.WriteByte(' ')
			case next == 'n' && boundary && followsWieOrFur(runes, i):
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func followsWieOrFur(runes []rune, i int) bool {
	if i < 3 {
		return false
	}
	if i > 3 && types.IsWordRune(runes[i-4]) {
		return false
	}
	w := strings.ToLower(string(runes[i-3 : i]))
	return w == "wie" || w == "für"
}

// Classify converts plain tokens into tagged tokens. Tokens containing a
// word character are words; "\n" and "\n\n" become line and section breaks;
// a lone parenthesis is tagged as such; anything else is punctuation, with
// the "@-@" hyphen marker mapped back to "-".
func Classify(plain []string) []types.Token {
	out := make([]types.Token, 0, len(plain))
	for _, s := range plain {
		var tok types.Token
		switch {
		case strings.ContainsFunc(s, types.IsWordRune):
			tok = types.Token{Text: s, Tags: types.NewTags(types.TagWord)}
		case s == "\n":
			tok = types.Token{Text: types.LineBreakText, Tags: types.NewTags(types.TagLineBreak)}
		case strings.Contains(s, "\n"):
			tok = types.Token{Text: types.SectionBreakText, Tags: types.NewTags(types.TagSectionBreak)}
		case s == "(" || s == ")":
			tok = types.Token{Text: s, Tags: types.NewTags(types.TagParenthesis)}
		case s == "@-@":
			tok = types.Token{Text: "-", Tags: types.NewTags(types.TagPunctuation)}
		default:
			tok = types.Token{Text: s, Tags: types.NewTags(types.TagPunctuation)}
		}
		out = append(out, tok)
	}
	return out
}
