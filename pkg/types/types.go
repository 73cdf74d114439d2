// Package types defines the shared types used across all alteval packages.
//
// These types form the lingua franca between the tokenizer, the aligner, the
// metric engine and the diff renderer. Each package defines its own domain
// types; cross-cutting data structures live here to avoid circular imports.
package types

import (
	"iter"
	"strconv"
	"strings"
	"unicode"
)

// Tag is a structural category attached to a [Token].
type Tag uint8

const (
	// TagWord marks tokens that contain at least one word character.
	TagWord Tag = iota

	// TagPunctuation marks punctuation tokens other than parentheses.
	TagPunctuation

	// TagLineBreak marks the canonical line-break token.
	TagLineBreak

	// TagSectionBreak marks the canonical section-break token emitted for
	// blank lines.
	TagSectionBreak

	// TagParenthesis marks a lone "(" or ")" token.
	TagParenthesis

	// NumTags is the size of the tag vocabulary. Arrays indexed by [Tag] use it
	// as their length.
	NumTags = 5
)

var tagNames = [NumTags]string{
	TagWord:         "word",
	TagPunctuation:  "punctuation",
	TagLineBreak:    "line_break",
	TagSectionBreak: "section_break",
	TagParenthesis:  "parenthesis",
}

// String returns the tag's canonical name (e.g. "line_break").
func (t Tag) String() string {
	if int(t) < NumTags {
		return tagNames[t]
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// IsValid reports whether t belongs to the closed tag vocabulary.
func (t Tag) IsValid() bool {
	return int(t) < NumTags
}

// Tags is a set of [Tag] values stored as a bit-set.
type Tags uint8

// NewTags returns a set containing the given tags.
func NewTags(tags ...Tag) Tags {
	var s Tags
	for _, t := range tags {
		s = s.Add(t)
	}
	return s
}

// Has reports whether t is in the set.
func (s Tags) Has(t Tag) bool {
	return s&(1<<t) != 0
}

// Add returns the set with t added.
func (s Tags) Add(t Tag) Tags {
	return s | 1<<t
}

// Intersect returns the tags present in both s and o.
func (s Tags) Intersect(o Tags) Tags {
	return s & o
}

// Without returns the tags of s that are not in o.
func (s Tags) Without(o Tags) Tags {
	return s &^ o
}

// IsEmpty reports whether the set has no members.
func (s Tags) IsEmpty() bool {
	return s == 0
}

// Len returns the number of tags in the set.
func (s Tags) Len() int {
	n := 0
	for range s.All() {
		n++
	}
	return n
}

// All iterates over the members of s in enum order.
func (s Tags) All() iter.Seq[Tag] {
	return func(yield func(Tag) bool) {
		for t := Tag(0); t < NumTags; t++ {
			if s.Has(t) && !yield(t) {
				return
			}
		}
	}
}

// String renders the set as a space-separated list of tag names.
func (s Tags) String() string {
	names := make([]string, 0, NumTags)
	for t := range s.All() {
		names = append(names, t.String())
	}
	return strings.Join(names, " ")
}

// Canonical texts of the structural marker tokens.
const (
	LineBreakText    = "<L>"
	SectionBreakText = "<S>"
)

// Token is a "rich" token: a text fragment annotated with its structural tags.
type Token struct {
	// Text is the surface form of the token. Line and section breaks carry
	// [LineBreakText] and [SectionBreakText].
	Text string

	// Tags holds the structural categories of the token. It is never empty
	// once the tokenizer has classified the token.
	Tags Tags
}

// IsWordRune reports whether r counts as a word character: a letter, mark,
// decimal digit, letter number or connector punctuation. Other numbers such
// as superscripts and vulgar fractions (², ½) are not word characters.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) ||
		unicode.In(r, unicode.Nd, unicode.Nl, unicode.Pc)
}

// Words projects tokens onto their word-tagged members. Every kept token has
// all characters other than word characters and apostrophes removed; tags
// and order are preserved. The input slice is not modified.
func Words(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if !tok.Tags.Has(TagWord) {
			continue
		}
		tok.Text = strings.Map(func(r rune) rune {
			if r == '\'' || IsWordRune(r) {
				return r
			}
			return -1
		}, tok.Text)
		out = append(out, tok)
	}
	return out
}

// Texts returns the Text of every token in order.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}
