package evaluate

import (
	"fmt"
	"maps"
	"strings"

	"github.com/MrWong99/alteval/pkg/types"
)

// Names of the error kinds tracked in [ErrorCounts].
const (
	// ErrorCase counts matched tokens that differ only in letter case.
	ErrorCase = "case"

	// ErrorPhonetic counts substituted words that sound like the reference
	// word. It is only tracked when a [SoundAlikeJudge] is configured.
	ErrorPhonetic = "phonetic"
)

// EditOpCounts tallies edit operations for one tag.
type EditOpCounts struct {
	Hits          int `json:"hits"`
	Substitutions int `json:"substitutions"`
	Deletions     int `json:"deletions"`
	Insertions    int `json:"insertions"`
}

// Add returns the element-wise sum of c and o.
func (c EditOpCounts) Add(o EditOpCounts) EditOpCounts {
	return EditOpCounts{
		Hits:          c.Hits + o.Hits,
		Substitutions: c.Substitutions + o.Substitutions,
		Deletions:     c.Deletions + o.Deletions,
		Insertions:    c.Insertions + o.Insertions,
	}
}

// Counts holds the edit operation tallies of every tag, indexed by
// [types.Tag].
type Counts [types.NumTags]EditOpCounts

// Of returns the tallies of tag.
func (c *Counts) Of(tag types.Tag) EditOpCounts {
	return c[tag]
}

// Merge adds o into c.
func (c *Counts) Merge(o *Counts) {
	for i := range c {
		c[i] = c[i].Add(o[i])
	}
}

// ErrorCounts maps an error kind such as [ErrorCase] to its count.
type ErrorCounts map[string]int

// Merge adds o into c.
func (c ErrorCounts) Merge(o ErrorCounts) {
	for k, v := range o {
		c[k] += v
	}
}

// Clone returns a copy of c.
func (c ErrorCounts) Clone() ErrorCounts {
	out := make(ErrorCounts, len(c))
	maps.Copy(out, c)
	return out
}

// ProcessChunk adds the tag-level edit operations of one alignment chunk to
// counts.
//
// Deleted reference tokens count a deletion and inserted hypothesis tokens an
// insertion for each of their tags. Paired tokens of an equal or substitute
// chunk count a hit or substitution for each tag they share; tags found on
// only one side count as a deletion (reference) or insertion (hypothesis).
// When countSubstitutions is false no tags are considered shared, so every
// paired tag counts as a deletion plus an insertion.
func ProcessChunk(ref, hyp []types.Token, kind types.ChunkKind, counts *Counts, countSubstitutions bool) error {
	switch kind {
	case types.ChunkDelete:
		if len(hyp) != 0 {
			return fmt.Errorf("evaluate: %w: delete chunk with %d hypothesis tokens", types.ErrMalformedAlignment, len(hyp))
		}
		for _, tok := range ref {
			for tag := range tok.Tags.All() {
				counts[tag].Deletions++
			}
		}

	case types.ChunkInsert:
		if len(ref) != 0 {
			return fmt.Errorf("evaluate: %w: insert chunk with %d reference tokens", types.ErrMalformedAlignment, len(ref))
		}
		for _, tok := range hyp {
			for tag := range tok.Tags.All() {
				counts[tag].Insertions++
			}
		}

	case types.ChunkEqual, types.ChunkSubstitute:
		if len(ref) != len(hyp) {
			return fmt.Errorf("evaluate: %w: %s chunk with %d reference and %d hypothesis tokens",
				types.ErrMalformedAlignment, kind, len(ref), len(hyp))
		}
		for i := range ref {
			var common types.Tags
			if countSubstitutions {
				common = ref[i].Tags.Intersect(hyp[i].Tags)
			}
			for tag := range ref[i].Tags.Without(common).All() {
				counts[tag].Deletions++
			}
			for tag := range hyp[i].Tags.Without(common).All() {
				counts[tag].Insertions++
			}
			for tag := range common.All() {
				if kind == types.ChunkEqual {
					counts[tag].Hits++
				} else {
					counts[tag].Substitutions++
				}
			}
		}

	default:
		return fmt.Errorf("evaluate: %w: %s", types.ErrUnhandledChunkKind, kind)
	}
	return nil
}

// CountCaseErrors returns the number of positional pairs in an equal chunk
// whose texts differ only in letter case. A pair whose texts differ beyond
// case is a malformed alignment.
func CountCaseErrors(ref, hyp []types.Token) (int, error) {
	if len(ref) != len(hyp) {
		return 0, fmt.Errorf("evaluate: %w: equal chunk with %d reference and %d hypothesis tokens",
			types.ErrMalformedAlignment, len(ref), len(hyp))
	}
	n := 0
	for i := range ref {
		if ref[i].Text == hyp[i].Text {
			continue
		}
		if strings.ToLower(ref[i].Text) != strings.ToLower(hyp[i].Text) {
			return 0, fmt.Errorf("evaluate: %w: equal chunk pairs %q with %q",
				types.ErrMalformedAlignment, ref[i].Text, hyp[i].Text)
		}
		n++
	}
	return n, nil
}
