// Package normalize brings raw transcripts closer to lyrics annotation
// conventions before they are evaluated.
//
// [Lyrics] works line by line:
//
//  1. A trailing run of unwanted characters (anything except word
//     characters, closing brackets, quotes, "!" and "?") is removed. The
//     first character of a line is never removed, so a line made only of
//     punctuation keeps one character.
//
//  2. The first word character of the line and any non-word characters
//     before it are upper-cased.
//
// The heuristic helps Latin-script transcripts; it can hurt when the
// transcript's line breaks are unreliable.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MrWong99/alteval/pkg/types"
)

// Lyrics normalizes every line of text. It is idempotent.
func Lyrics(text string) string {
	return LyricsIn(text, language.Und)
}

// LyricsIn is like [Lyrics] but upper-cases with the rules of tag, which
// matters for languages such as Turkish.
func LyricsIn(text string, tag language.Tag) string {
	upper := cases.Upper(tag)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = trimTrailing(line)
		lines[i] = upperFirst(line, upper)
	}
	return strings.Join(lines, "\n")
}

// kept lists the non-word characters allowed at the end of a line.
const kept = "!?'´‘’\"“”»)"

func unwanted(r rune) bool {
	return !types.IsWordRune(r) && !strings.ContainsRune(kept, r)
}

func trimTrailing(line string) string {
	runes := []rune(line)
	start := len(runes)
	for start > 0 && unwanted(runes[start-1]) {
		start--
	}
	if start == 0 {
		start = 1
	}
	if start >= len(runes) {
		return line
	}
	return string(runes[:start])
}

func upperFirst(line string, upper cases.Caser) string {
	i := strings.IndexFunc(line, types.IsWordRune)
	if i < 0 {
		return line
	}
	_, size := utf8.DecodeRuneInString(line[i:])
	end := i + size
	return upper.String(line[:end]) + line[end:]
}
