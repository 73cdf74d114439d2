// Package align computes minimum-edit-distance alignments between token
// sequences and the word-error-rate family of measures over them.
//
// Sequences are compared by exact string equality. Callers that want
// case-insensitive alignment fold the texts before calling [Aligner.Align].
package align

import (
	"math"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/MrWong99/alteval/pkg/types"
)

// Aligner aligns a reference with a hypothesis. The returned chunks must
// partition both sequences in order (see [types.ValidateAlignment]).
type Aligner interface {
	Align(ref, hyp []string) ([]types.Chunk, error)
}

// Compile-time interface assertion.
var _ Aligner = Levenshtein{}

// Levenshtein aligns sequences with unit insertion, deletion and
// substitution costs. The zero value is ready to use and safe for concurrent
// use.
type Levenshtein struct{}

var unitCosts = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Align implements [Aligner]. Runs of identical edit operations are merged
// into one chunk.
func (Levenshtein) Align(ref, hyp []string) ([]types.Chunk, error) {
	src, dst := intern(ref, hyp)
	matrix := levenshtein.MatrixForStrings(src, dst, unitCosts)
	script := levenshtein.EditScriptForMatrix(matrix, unitCosts)
	return chunks(script), nil
}

// intern maps every distinct token to its own rune so that the rune-based
// edit distance compares whole tokens.
func intern(ref, hyp []string) ([]rune, []rune) {
	ids := make(map[string]rune, len(ref)+len(hyp))
	conv := func(seq []string) []rune {
		out := make([]rune, len(seq))
		for i, s := range seq {
			id, ok := ids[s]
			if !ok {
				id = rune(len(ids))
				ids[s] = id
			}
			out[i] = id
		}
		return out
	}
	return conv(ref), conv(hyp)
}

func kindOf(op levenshtein.EditOperation) types.ChunkKind {
	switch op {
	case levenshtein.Match:
		return types.ChunkEqual
	case levenshtein.Sub:
		return types.ChunkSubstitute
	case levenshtein.Del:
		return types.ChunkDelete
	default:
		return types.ChunkInsert
	}
}

func chunks(script levenshtein.EditScript) []types.Chunk {
	var (
		out      []types.Chunk
		ref, hyp int
	)
	for _, op := range script {
		kind := kindOf(op)
		nextRef, nextHyp := ref, hyp
		switch kind {
		case types.ChunkEqual, types.ChunkSubstitute:
			nextRef++
			nextHyp++
		case types.ChunkDelete:
			nextRef++
		case types.ChunkInsert:
			nextHyp++
		}
		if n := len(out); n > 0 && out[n-1].Kind == kind {
			out[n-1].RefEnd, out[n-1].HypEnd = nextRef, nextHyp
		} else {
			out = append(out, types.Chunk{Kind: kind, RefStart: ref, RefEnd: nextRef, HypStart: hyp, HypEnd: nextHyp})
		}
		ref, hyp = nextRef, nextHyp
	}
	return out
}

// Measures are corpus-level edit counts and the rates derived from them.
//
// Rates follow the usual definitions with N = H+S+D reference tokens:
// WER = (S+D+I)/N, MER = (S+D+I)/(H+S+D+I), WIP = H/N * H/(H+S+I) and
// WIL = 1-WIP. A rate whose denominator is zero is NaN, except that WIL is 1
// when the reference is non-empty and the hypothesis is empty.
type Measures struct {
	Hits          int
	Substitutions int
	Deletions     int
	Insertions    int

	WER float64
	MER float64
	WIP float64
	WIL float64
}

// Measure sums the edit operations of every alignment and derives the rates.
func Measure(alignments [][]types.Chunk) Measures {
	var m Measures
	for _, a := range alignments {
		for _, c := range a {
			switch c.Kind {
			case types.ChunkEqual:
				m.Hits += c.RefLen()
			case types.ChunkSubstitute:
				m.Substitutions += c.RefLen()
			case types.ChunkDelete:
				m.Deletions += c.RefLen()
			case types.ChunkInsert:
				m.Insertions += c.HypLen()
			}
		}
	}

	h := float64(m.Hits)
	errs := float64(m.Substitutions + m.Deletions + m.Insertions)
	nRef := float64(m.Hits + m.Substitutions + m.Deletions)
	nHyp := float64(m.Hits + m.Substitutions + m.Insertions)

	m.WER = ratio(errs, nRef)
	m.MER = ratio(errs, nRef+float64(m.Insertions))
	switch {
	case nRef == 0:
		m.WIP, m.WIL = math.NaN(), math.NaN()
	case nHyp == 0:
		m.WIP, m.WIL = 0, 1
	default:
		m.WIP = (h / nRef) * (h / nHyp)
		m.WIL = 1 - m.WIP
	}
	return m
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
