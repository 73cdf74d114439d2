package report

import "github.com/MrWong99/alteval/pkg/types"

// Token is the serialisable form of a [types.Token].
type Token struct {
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

// Tokens converts tokens for JSON output.
func Tokens(tokens []types.Token) []Token {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		tags := make([]string, 0, tok.Tags.Len())
		for tag := range tok.Tags.All() {
			tags = append(tags, tag.String())
		}
		out[i] = Token{Text: tok.Text, Tags: tags}
	}
	return out
}
