// Package diff renders an aligned reference/hypothesis pair as HTML markup.
//
// Every token becomes a <span> whose classes describe its role and tags:
//
//	<span class="token hit token-word">love</span>
//
// Roles are "hit" (matched), "ref-case" and "hyp-case" (matched up to letter
// case), "hyp" (produced by the system but not matched) and "ref" (expected
// but not matched). Within a non-equal chunk hypothesis tokens come first. A
// <br> follows every "ref" or "hit" line or section break so the markup
// keeps the lyrics' line structure.
package diff

import (
	"fmt"
	"html"
	"strings"

	"github.com/MrWong99/alteval/pkg/types"
)

// Roles of a rendered token.
const (
	RoleHit     = "hit"
	RoleRefCase = "ref-case"
	RoleHypCase = "hyp-case"
	RoleHyp     = "hyp"
	RoleRef     = "ref"
)

// Renderer accumulates the markup of one transcript pair. Feed it every
// chunk of the alignment in order with [Renderer.AddChunk], then call
// [Renderer.Finish]. A Renderer is not safe for concurrent use.
type Renderer struct {
	fragments []string
}

// New returns an empty Renderer.
func New() *Renderer {
	return &Renderer{}
}

// AddChunk renders the tokens of one alignment chunk. For equal chunks, ref
// and hyp must have the same length and pairwise equal lower-cased texts.
func (r *Renderer) AddChunk(ref, hyp []types.Token, kind types.ChunkKind) error {
	if kind != types.ChunkEqual {
		for _, tok := range hyp {
			r.add(tok, RoleHyp)
		}
		for _, tok := range ref {
			r.add(tok, RoleRef)
		}
		return nil
	}

	if len(ref) != len(hyp) {
		return fmt.Errorf("diff: %w: equal chunk with %d reference and %d hypothesis tokens",
			types.ErrMalformedAlignment, len(ref), len(hyp))
	}
	for i := range ref {
		switch {
		case ref[i].Text == hyp[i].Text:
			r.add(ref[i], RoleHit)
		case strings.ToLower(ref[i].Text) == strings.ToLower(hyp[i].Text):
			r.add(ref[i], RoleRefCase)
			r.add(hyp[i], RoleHypCase)
		default:
			return fmt.Errorf("diff: %w: equal chunk pairs %q with %q",
				types.ErrMalformedAlignment, ref[i].Text, hyp[i].Text)
		}
	}
	return nil
}

func (r *Renderer) add(tok types.Token, role string) {
	var b strings.Builder
	b.WriteString(`<span class="token `)
	b.WriteString(role)
	for tag := range tok.Tags.All() {
		b.WriteString(" token-")
		b.WriteString(tag.String())
	}
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(tok.Text))
	b.WriteString(`</span>`)
	r.fragments = append(r.fragments, b.String())

	if (role == RoleRef || role == RoleHit || role == RoleRefCase) &&
		(tok.Tags.Has(types.TagLineBreak) || tok.Tags.Has(types.TagSectionBreak)) {
		r.fragments = append(r.fragments, "<br>")
	}
}

// Finish returns the accumulated markup, fragments separated by spaces.
func (r *Renderer) Finish() string {
	return strings.Join(r.fragments, " ")
}
