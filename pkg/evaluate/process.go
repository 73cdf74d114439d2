package evaluate

import (
	"fmt"

	"github.com/MrWong99/alteval/pkg/diff"
	"github.com/MrWong99/alteval/pkg/types"
)

// SoundAlikeJudge decides whether a substituted hypothesis word sounds like
// the reference word it replaced.
//
// Implementations must be safe for concurrent use.
type SoundAlikeJudge interface {
	SoundAlike(ref, hyp string) (score float64, ok bool)
}

// ProcessOptions controls [ProcessAlignments].
type ProcessOptions struct {
	// CountSubstitutions credits tags shared by the two sides of a
	// substitute chunk as substitutions instead of a deletion plus an
	// insertion.
	CountSubstitutions bool

	// Visualize renders an HTML diff of every pair.
	Visualize bool

	// SoundAlike, when set, counts substituted word pairs it accepts under
	// [ErrorPhonetic].
	SoundAlike SoundAlikeJudge
}

// Tally is the outcome of processing the alignment of one or more pairs.
type Tally struct {
	Counts Counts
	Errors ErrorCounts

	// Diffs holds one HTML fragment per pair when visualisation was
	// requested and is nil otherwise.
	Diffs []string
}

// ProcessPair tallies the chunks of one aligned pair. The chunks must
// partition ref and hyp.
func ProcessPair(ref, hyp []types.Token, chunks []types.Chunk, opts ProcessOptions) (*Tally, error) {
	if err := types.ValidateAlignment(chunks, len(ref), len(hyp)); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	t := &Tally{Errors: ErrorCounts{ErrorCase: 0}}
	if opts.SoundAlike != nil {
		t.Errors[ErrorPhonetic] = 0
	}
	var renderer *diff.Renderer
	if opts.Visualize {
		renderer = diff.New()
	}

	for _, c := range chunks {
		r := ref[c.RefStart:c.RefEnd]
		h := hyp[c.HypStart:c.HypEnd]

		if err := ProcessChunk(r, h, c.Kind, &t.Counts, opts.CountSubstitutions); err != nil {
			return nil, err
		}

		switch c.Kind {
		case types.ChunkEqual:
			n, err := CountCaseErrors(r, h)
			if err != nil {
				return nil, err
			}
			t.Errors[ErrorCase] += n
		case types.ChunkSubstitute:
			if opts.SoundAlike != nil {
				t.Errors[ErrorPhonetic] += countSoundAlike(opts.SoundAlike, r, h)
			}
		}

		if renderer != nil {
			if err := renderer.AddChunk(r, h, c.Kind); err != nil {
				return nil, fmt.Errorf("evaluate: %w", err)
			}
		}
	}

	if renderer != nil {
		t.Diffs = []string{renderer.Finish()}
	}
	return t, nil
}

// ProcessAlignments tallies every aligned pair of a corpus. refs, hyps and
// alignments must have the same length.
func ProcessAlignments(refs, hyps [][]types.Token, alignments [][]types.Chunk, opts ProcessOptions) (*Tally, error) {
	if len(refs) != len(hyps) || len(refs) != len(alignments) {
		return nil, fmt.Errorf("%w: %d references, %d hypotheses, %d alignments",
			ErrLengthMismatch, len(refs), len(hyps), len(alignments))
	}

	total := &Tally{Errors: ErrorCounts{ErrorCase: 0}}
	if opts.SoundAlike != nil {
		total.Errors[ErrorPhonetic] = 0
	}
	if opts.Visualize {
		total.Diffs = make([]string, 0, len(refs))
	}
	for i := range refs {
		t, err := ProcessPair(refs[i], hyps[i], alignments[i], opts)
		if err != nil {
			return nil, fmt.Errorf("evaluate: pair %d: %w", i, err)
		}
		total.merge(t)
	}
	return total, nil
}

func (t *Tally) merge(o *Tally) {
	t.Counts.Merge(&o.Counts)
	t.Errors.Merge(o.Errors)
	if t.Diffs != nil {
		t.Diffs = append(t.Diffs, o.Diffs...)
	}
}

// countSoundAlike counts positional word pairs of a substitute chunk that
// judge accepts. Non-word tokens are skipped.
func countSoundAlike(judge SoundAlikeJudge, ref, hyp []types.Token) int {
	n := 0
	for i := range min(len(ref), len(hyp)) {
		if !ref[i].Tags.Has(types.TagWord) || !hyp[i].Tags.Has(types.TagWord) {
			continue
		}
		if _, ok := judge.SoundAlike(ref[i].Text, hyp[i].Text); ok {
			n++
		}
	}
	return n
}
