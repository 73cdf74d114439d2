package tokenize

import (
	"regexp"
	"strings"
)

// rule is one regular-expression rewrite. Replacements use the ${n} syntax of
// [regexp.Regexp.ReplaceAllString].
type rule struct {
	re   *regexp.Regexp
	repl string
}

func mustRule(pattern, repl string) rule {
	return rule{re: regexp.MustCompile(pattern), repl: repl}
}

func applyRules(rules []rule, s string) string {
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

var (
	extraWhitespaceRules = []rule{
		mustRule(`\r`, ""),
		mustRule(`\(`, " ("),
		mustRule(`\)`, ") "),
		mustRule(` +`, " "),
		mustRule(`\) ([.!:?;,])`, ")${1}"),
		mustRule(`\( `, "("),
		mustRule(` \)`, ")"),
		mustRule(`(\p{Nd}) %`, "${1}%"),
		mustRule(` :`, ":"),
		mustRule(` ;`, ";"),
	}

	backtickRules = []rule{
		mustRule("`", "'"),
		mustRule(`''`, ` " `),
	}

	unicodeQuoteRules = []rule{
		mustRule(`„`, `"`),
		mustRule(`“`, `"`),
		mustRule(`”`, `"`),
		mustRule(`–`, "-"),
		mustRule(`—`, " - "),
		mustRule(` +`, " "),
		mustRule(`´`, "'"),
		mustRule(`([a-zA-Z])‘([a-zA-Z])`, "${1}'${2}"),
		mustRule(`([a-zA-Z])’([a-zA-Z])`, "${1}'${2}"),
		mustRule(`‘`, "'"),
		mustRule(`‚`, "'"),
		mustRule(`’`, `"`),
		mustRule(`''`, `"`),
		mustRule(`´´`, `"`),
		mustRule(`…`, "..."),
	}

	frenchQuoteRules = []rule{
		mustRule(`\x{00A0}«\x{00A0}`, `"`),
		mustRule(`«\x{00A0}`, `"`),
		mustRule(`«`, `"`),
		mustRule(`\x{00A0}»\x{00A0}`, `"`),
		mustRule(`\x{00A0}»`, `"`),
		mustRule(`»`, `"`),
	}

	pseudoSpaceRules = []rule{
		mustRule(`\x{00A0}%`, "%"),
		mustRule(`nº\x{00A0}`, "nº "),
		mustRule(`\x{00A0}:`, ":"),
		mustRule(`\x{00A0}ºC`, " ºC"),
		mustRule(`\x{00A0}cm`, " cm"),
		mustRule(`\x{00A0}\?`, "?"),
		mustRule(`\x{00A0}!`, "!"),
		mustRule(`\x{00A0};`, ";"),
		mustRule(`,\x{00A0}`, ", "),
		mustRule(` +`, " "),
	}

	enQuoteCommaRules = []rule{
		mustRule(`"([,.]+)`, `${1}"`),
	}

	deEsFrQuoteCommaRules = []rule{
		mustRule(`,"`, `",`),
		mustRule(`(\.+)"(\s*[^<])`, `"${1}${2}`),
	}

	decimalCommaRules = []rule{
		mustRule(`(\p{Nd})\x{00A0}(\p{Nd})`, "${1},${2}"),
	}

	decimalPointRules = []rule{
		mustRule(`(\p{Nd})\x{00A0}(\p{Nd})`, "${1}.${2}"),
	}
)

// punctNormalizer unifies quote, dash and space variants before word
// tokenization. The rule set depends on the language.
type punctNormalizer struct {
	rules []rule
}

func newPunctNormalizer(language string) *punctNormalizer {
	var rules []rule
	rules = append(rules, extraWhitespaceRules...)
	rules = append(rules, backtickRules...)
	rules = append(rules, unicodeQuoteRules...)
	rules = append(rules, frenchQuoteRules...)
	rules = append(rules, pseudoSpaceRules...)

	switch language {
	case "en":
		rules = append(rules, enQuoteCommaRules...)
	case "de", "es", "fr":
		rules = append(rules, deEsFrQuoteCommaRules...)
	}

	switch language {
	case "de", "es", "cz", "cs", "fr":
		rules = append(rules, decimalCommaRules...)
	default:
		rules = append(rules, decimalPointRules...)
	}
	return &punctNormalizer{rules: rules}
}

func (p *punctNormalizer) normalize(s string) string {
	return strings.TrimSpace(applyRules(p.rules, s))
}
