package tokenize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Character classes shared by the word tokenizer rules.
const (
	alnumClass = `\p{L}\p{M}\p{N}`
	alphaClass = `\p{L}\p{M}`
	spaceClass = `\s\x{85}\p{Z}`
)

var (
	asciiJunk   = regexp.MustCompile(`[\x00-\x1f]`)
	protectedRe = regexp.MustCompile(`(?i)\*+|` + regexp.QuoteMeta(aposPlaceholder))

	padNotAlnum = mustRule(`([^`+alnumClass+spaceClass+`.'`+"`"+`,\-])`, " ${1} ")
	hyphenSplit = mustRule(`([`+alnumClass+`])-([`+alnumClass+`])`, "${1} @-@ ${2}")

	multidotStart   = regexp.MustCompile(`\.(\.+)`)
	multidotPending = regexp.MustCompile(`DOTMULTI\.`)
	multidotNext    = regexp.MustCompile(`DOTMULTI\.([^.])`)
	multidotRestore = regexp.MustCompile(`DOTDOTMULTI`)

	commaRules = []rule{
		mustRule(`([^\p{N}])[,]`, "${1} , "),
		mustRule(`[,]([^\p{N}])`, " , ${1}"),
		mustRule(`([\p{N}])[,]$`, "${1} , "),
	}

	enApostropheRules = []rule{
		mustRule(`([^`+alphaClass+`])[']([^`+alphaClass+`])`, "${1} ' ${2}"),
		mustRule(`([^`+alphaClass+`\p{N}])[']([`+alphaClass+`])`, "${1} ' ${2}"),
		mustRule(`([`+alphaClass+`])[']([^`+alphaClass+`])`, "${1} ' ${2}"),
		mustRule(`([`+alphaClass+`])[']([`+alphaClass+`])`, "${1} '${2}"),
		mustRule(`([\p{N}])[']([s])`, "${1} '${2}"),
	}

	frItApostropheRules = []rule{
		mustRule(`([^`+alphaClass+`])[']([^`+alphaClass+`])`, "${1} ' ${2}"),
		mustRule(`([^`+alphaClass+`])[']([`+alphaClass+`])`, "${1} ' ${2}"),
		mustRule(`([`+alphaClass+`])[']([^`+alphaClass+`])`, "${1} ' ${2}"),
		mustRule(`([`+alphaClass+`])[']([`+alphaClass+`])`, "${1}' ${2}"),
	}

	otherApostropheRules = []rule{
		mustRule(`'`, " ' "),
	}

	trailingDotApostrophe = mustRule(`\.' ?$`, " . ' ")
)

// wordTokenizer splits one sentence into space-separated word and
// punctuation tokens. It separates every character outside letters, marks
// and numbers, splits hyphens between alphanumerics into "@-@" tokens and
// applies the apostrophe conventions of the language. Runs of asterisks and
// the apostrophe placeholder pass through untouched.
type wordTokenizer struct {
	language   string
	apostrophe []rule
	prefixes   *prefixSet
}

func newWordTokenizer(language string) *wordTokenizer {
	w := &wordTokenizer{language: language, prefixes: loadPrefixes(language)}
	switch language {
	case "en":
		w.apostrophe = enApostropheRules
	case "fr", "it":
		w.apostrophe = frItApostropheRules
	default:
		w.apostrophe = otherApostropheRules
	}
	return w
}

func (w *wordTokenizer) tokenize(text string) string {
	text = collapseSpace(text)
	text = asciiJunk.ReplaceAllString(text, "")

	text, protected := protect(text)
	text = strings.TrimSpace(text)

	text = padNotAlnum.re.ReplaceAllString(text, padNotAlnum.repl)
	text = splitHyphens(text)
	text = replaceMultidots(text)
	text = applyRules(commaRules, text)
	text = applyRules(w.apostrophe, text)
	text = w.splitPeriods(text)
	text = collapseSpace(text)
	text = trailingDotApostrophe.re.ReplaceAllString(text, trailingDotApostrophe.repl)

	text = restore(text, protected)
	return restoreMultidots(text)
}

// collapseSpace joins the whitespace-separated fields of s with single
// spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// protect replaces every protected match with a numbered placeholder made of
// letters and digits only, so no rule splits it.
func protect(text string) (string, []string) {
	var tokens []string
	index := make(map[string]int)
	text = protectedRe.ReplaceAllStringFunc(text, func(m string) string {
		i, ok := index[m]
		if !ok {
			i = len(tokens)
			index[m] = i
			tokens = append(tokens, m)
		}
		return placeholderFor(i)
	})
	return text, tokens
}

func restore(text string, tokens []string) string {
	for i, tok := range tokens {
		text = strings.ReplaceAll(text, placeholderFor(i), tok)
	}
	return text
}

func placeholderFor(i int) string {
	return fmt.Sprintf("THISISPROTECTED%03d", i)
}

// splitHyphens separates hyphens between two alphanumerics. Adjacent matches
// share a character, so the rule is applied until nothing changes.
func splitHyphens(text string) string {
	for {
		next := hyphenSplit.re.ReplaceAllString(text, hyphenSplit.repl)
		if next == text {
			return text
		}
		text = next
	}
}

// replaceMultidots hides runs of periods behind DOTMULTI markers so the
// sentence-final period logic leaves them alone.
func replaceMultidots(text string) string {
	text = multidotStart.ReplaceAllString(text, " DOTMULTI${1}")
	for multidotPending.MatchString(text) {
		text = multidotNext.ReplaceAllString(text, "DOTDOTMULTI ${1}")
		text = multidotPending.ReplaceAllString(text, "DOTDOTMULTI")
	}
	return text
}

func restoreMultidots(text string) string {
	for multidotRestore.MatchString(text) {
		text = multidotRestore.ReplaceAllString(text, "DOTMULTI.")
	}
	return strings.ReplaceAll(text, "DOTMULTI", ".")
}

// splitPeriods detaches a trailing period from every token unless the token
// is a known abbreviation, contains inner periods (U.S.A.), or is followed
// by a lower-case word.
func (w *wordTokenizer) splitPeriods(text string) string {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		prefix, ok := strings.CutSuffix(tok, ".")
		if !ok || prefix == "" {
			continue
		}
		switch {
		case strings.Contains(prefix, ".") && strings.ContainsFunc(prefix, isAlpha):
		case w.prefixes.always[prefix]:
		case i+1 < len(tokens) && startsLower(tokens[i+1]):
		case w.prefixes.numericOnly[prefix] && i+1 < len(tokens) && startsDigit(tokens[i+1]):
		default:
			tokens[i] = prefix + " ."
		}
	}
	return strings.Join(tokens, " ")
}

func isAlpha(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r)
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

func startsDigit(s string) bool {
	return s != "" && isASCIIDigit(rune(s[0]))
}
