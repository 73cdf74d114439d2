// Package lang resolves free-form language identifiers to canonical ISO 639-1
// two-letter codes.
//
// The pseudo-code [CJK] ("cjk", any case) is accepted as is. Other
// identifiers are resolved in two stages:
//
//  1. The identifier is parsed as a BCP 47 tag ("en", "en-US", "deu", "zh-Hant").
//     The tag's base language is accepted when it is known with exact
//     confidence and has a two-letter form.
//
//  2. Otherwise the identifier is looked up, case-insensitively, among the
//     English display names of all two-letter languages ("German", "french").
//
// Identifiers that match neither stage fail with [ErrUnsupportedLanguage].
package lang

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnsupportedLanguage is returned when a language identifier does not
// resolve to a two-letter language code.
var ErrUnsupportedLanguage = errors.New("lang: unsupported language")

// CJK is the pseudo-language for Chinese, Japanese and Korean text handled
// with one set of rules: generic word rules and per-character splitting of
// the scripts written without spaces.
const CJK = "cjk"

// Resolve maps id to its ISO 639-1 code, or to [CJK].
func Resolve(id string) (string, error) {
	s := strings.TrimSpace(id)
	if s == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrUnsupportedLanguage)
	}
	if strings.EqualFold(s, CJK) {
		return CJK, nil
	}

	if tag, err := language.Parse(s); err == nil {
		if base, conf := tag.Base(); conf == language.Exact {
			if code := base.String(); len(code) == 2 {
				return code, nil
			}
		}
	}

	if code, ok := namesIndex()[strings.ToLower(s)]; ok {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, id)
}

// Tag returns the BCP 47 tag of a code returned by [Resolve]. [CJK] maps to
// [language.Und].
func Tag(code string) language.Tag {
	if code == CJK {
		return language.Und
	}
	return language.Make(code)
}

var (
	namesOnce sync.Once
	names     map[string]string
)

// namesIndex returns the lazily built map from lower-cased English language
// name to two-letter code.
func namesIndex() map[string]string {
	namesOnce.Do(func() {
		names = make(map[string]string)
		namer := display.English.Languages()
		for a := 'a'; a <= 'z'; a++ {
			for b := 'a'; b <= 'z'; b++ {
				base, err := language.ParseBase(string([]rune{a, b}))
				if err != nil {
					continue
				}
				code := base.String()
				if len(code) != 2 {
					continue
				}
				name := namer.Name(base)
				if name == "" {
					continue
				}
				key := strings.ToLower(name)
				if _, dup := names[key]; !dup {
					names[key] = code
				}
			}
		}
	})
	return names
}
