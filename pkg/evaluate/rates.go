package evaluate

import (
	"math"

	"github.com/MrWong99/alteval/pkg/types"
)

// PRF holds precision, recall and F1 for one tag.
type PRF struct {
	Precision float64
	Recall    float64
	F1        float64
}

// ComputePRF derives precision and recall from the tallies of a tag.
//
// Precision is H/(H+S+I) and recall H/(H+S+D); each is NaN when its
// denominator is zero. F1 is their harmonic mean: NaN when either is NaN
// and 0 when both are 0.
func ComputePRF(c EditOpCounts) PRF {
	h := float64(c.Hits)
	p := ratio(h, float64(c.Hits+c.Substitutions+c.Insertions))
	r := ratio(h, float64(c.Hits+c.Substitutions+c.Deletions))

	var f1 float64
	switch {
	case math.IsNaN(p) || math.IsNaN(r):
		f1 = math.NaN()
	case p+r == 0:
		f1 = 0
	default:
		f1 = 2 * p * r / (p + r)
	}
	return PRF{Precision: p, Recall: r, F1: f1}
}

// StructuralTags are the tags scored with precision and recall, in report
// order.
var StructuralTags = []types.Tag{
	types.TagPunctuation,
	types.TagParenthesis,
	types.TagLineBreak,
	types.TagSectionBreak,
}

// ShortName returns the four-letter metric key suffix of tag, for example
// "punc" for [types.TagPunctuation].
func ShortName(tag types.Tag) string {
	s := tag.String()
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
