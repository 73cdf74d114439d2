package tokenize

import "errors"

// ErrDependencyUnavailable is returned when the segmenter configured for a
// language route cannot be initialised. The error message names the language
// and the segmenter.
var ErrDependencyUnavailable = errors.New("tokenize: dependency unavailable")

// Segmenter splits text written without inter-word spaces into words.
//
// Implementations must be safe for concurrent use.
type Segmenter interface {
	// Segment returns the surface forms of the words in text, in order.
	// Concatenating the result must reproduce text without whitespace.
	Segment(text string) ([]string, error)
}

// SegmenterFactory constructs a [Segmenter]. It is called at most once per
// language, the first time text in that language is tokenized.
type SegmenterFactory func() (Segmenter, error)

type segmenterRoute struct {
	name    string
	factory SegmenterFactory
}
