package tokenize

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed prefixes/*.txt
var prefixFiles embed.FS

// prefixSet holds the nonbreaking prefixes of one language: abbreviations
// that keep their trailing period attached.
type prefixSet struct {
	// always keep their period.
	always map[string]bool
	// keep their period only when the next token starts with a digit.
	numericOnly map[string]bool
}

// loadPrefixes returns the prefixes for language, falling back to English
// when no list exists for it.
func loadPrefixes(language string) *prefixSet {
	data, err := prefixFiles.ReadFile("prefixes/" + language + ".txt")
	if err != nil {
		data, err = prefixFiles.ReadFile("prefixes/en.txt")
		if err != nil {
			return &prefixSet{always: map[string]bool{}, numericOnly: map[string]bool{}}
		}
	}
	return parsePrefixes(string(data))
}

func parsePrefixes(data string) *prefixSet {
	ps := &prefixSet{always: make(map[string]bool), numericOnly: make(map[string]bool)}
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if word, ok := strings.CutSuffix(line, "#NUMERIC_ONLY#"); ok {
			ps.numericOnly[strings.TrimSpace(word)] = true
			continue
		}
		ps.always[line] = true
	}
	return ps
}
