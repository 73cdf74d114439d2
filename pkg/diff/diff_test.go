package diff_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/alteval/pkg/diff"
	"github.com/MrWong99/alteval/pkg/types"
)

func word(s string) types.Token {
	return types.Token{Text: s, Tags: types.NewTags(types.TagWord)}
}

func lineBreak() types.Token {
	return types.Token{Text: types.LineBreakText, Tags: types.NewTags(types.TagLineBreak)}
}

func TestRenderer_EqualChunk(t *testing.T) {
	t.Parallel()

	r := diff.New()
	ref := []types.Token{word("Hello"), lineBreak(), word("world")}
	hyp := []types.Token{word("hello"), lineBreak(), word("world")}
	if err := r.AddChunk(ref, hyp, types.ChunkEqual); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	want := `<span class="token ref-case token-word">Hello</span> ` +
		`<span class="token hyp-case token-word">hello</span> ` +
		`<span class="token hit token-line_break">&lt;L&gt;</span> <br> ` +
		`<span class="token hit token-word">world</span>`
	if got := r.Finish(); got != want {
		t.Errorf("Finish() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderer_HypothesisFirst(t *testing.T) {
	t.Parallel()

	r := diff.New()
	ref := []types.Token{word("blue"), lineBreak()}
	hyp := []types.Token{word("new")}
	if err := r.AddChunk(ref, hyp, types.ChunkSubstitute); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	if err := r.AddChunk(nil, []types.Token{lineBreak()}, types.ChunkInsert); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	want := `<span class="token hyp token-word">new</span> ` +
		`<span class="token ref token-word">blue</span> ` +
		`<span class="token ref token-line_break">&lt;L&gt;</span> <br> ` +
		`<span class="token hyp token-line_break">&lt;L&gt;</span>`
	if got := r.Finish(); got != want {
		t.Errorf("Finish() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderer_EscapesText(t *testing.T) {
	t.Parallel()

	r := diff.New()
	tok := types.Token{Text: `"&`, Tags: types.NewTags(types.TagPunctuation)}
	if err := r.AddChunk([]types.Token{tok}, nil, types.ChunkDelete); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	want := `<span class="token ref token-punctuation">&#34;&amp;</span>`
	if got := r.Finish(); got != want {
		t.Errorf("Finish() = %s, want %s", got, want)
	}
}

func TestRenderer_MalformedEqualChunk(t *testing.T) {
	t.Parallel()

	r := diff.New()
	err := r.AddChunk([]types.Token{word("a")}, []types.Token{word("b")}, types.ChunkEqual)
	if !errors.Is(err, types.ErrMalformedAlignment) {
		t.Errorf("err = %v, want ErrMalformedAlignment", err)
	}

	err = r.AddChunk([]types.Token{word("a")}, nil, types.ChunkEqual)
	if !errors.Is(err, types.ErrMalformedAlignment) {
		t.Errorf("err = %v, want ErrMalformedAlignment", err)
	}
}

func TestRenderer_Empty(t *testing.T) {
	t.Parallel()

	if got := diff.New().Finish(); got != "" {
		t.Errorf("Finish() on empty renderer = %q, want empty", got)
	}
}
