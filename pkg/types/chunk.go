package types

import (
	"errors"
	"fmt"
)

// ErrMalformedAlignment is returned when an alignment chunk violates the
// range invariants of its kind, or when a sequence of chunks does not
// partition both token sequences.
var ErrMalformedAlignment = errors.New("alignment: malformed chunk")

// ErrUnhandledChunkKind is returned when a chunk carries a kind outside the
// closed set of [ChunkKind] values.
var ErrUnhandledChunkKind = errors.New("alignment: unhandled chunk kind")

// ChunkKind is the edit operation of an alignment chunk.
type ChunkKind uint8

const (
	// ChunkEqual pairs reference and hypothesis tokens that match.
	ChunkEqual ChunkKind = iota

	// ChunkSubstitute pairs reference and hypothesis tokens that differ.
	ChunkSubstitute

	// ChunkDelete covers reference tokens missing from the hypothesis.
	ChunkDelete

	// ChunkInsert covers hypothesis tokens absent from the reference.
	ChunkInsert
)

// String returns the kind's name as used by common WER toolkits.
func (k ChunkKind) String() string {
	switch k {
	case ChunkEqual:
		return "equal"
	case ChunkSubstitute:
		return "substitute"
	case ChunkDelete:
		return "delete"
	case ChunkInsert:
		return "insert"
	}
	return fmt.Sprintf("ChunkKind(%d)", uint8(k))
}

// Chunk is one contiguous region of an alignment between a reference and a
// hypothesis token sequence. Ranges are half-open.
type Chunk struct {
	Kind     ChunkKind
	RefStart int
	RefEnd   int
	HypStart int
	HypEnd   int
}

// RefLen returns the length of the reference range.
func (c Chunk) RefLen() int { return c.RefEnd - c.RefStart }

// HypLen returns the length of the hypothesis range.
func (c Chunk) HypLen() int { return c.HypEnd - c.HypStart }

// Validate checks the chunk against its kind's invariants and against
// sequences of length refLen and hypLen.
func (c Chunk) Validate(refLen, hypLen int) error {
	if c.RefStart < 0 || c.RefStart > c.RefEnd || c.RefEnd > refLen ||
		c.HypStart < 0 || c.HypStart > c.HypEnd || c.HypEnd > hypLen {
		return fmt.Errorf("%w: %s ref [%d,%d) hyp [%d,%d) out of bounds (ref %d, hyp %d)",
			ErrMalformedAlignment, c.Kind, c.RefStart, c.RefEnd, c.HypStart, c.HypEnd, refLen, hypLen)
	}
	switch c.Kind {
	case ChunkEqual, ChunkSubstitute:
		if c.RefLen() != c.HypLen() {
			return fmt.Errorf("%w: %s chunk with ref length %d and hyp length %d",
				ErrMalformedAlignment, c.Kind, c.RefLen(), c.HypLen())
		}
	case ChunkDelete:
		if c.HypLen() != 0 {
			return fmt.Errorf("%w: delete chunk with non-empty hypothesis range", ErrMalformedAlignment)
		}
	case ChunkInsert:
		if c.RefLen() != 0 {
			return fmt.Errorf("%w: insert chunk with non-empty reference range", ErrMalformedAlignment)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnhandledChunkKind, c.Kind)
	}
	return nil
}

// ValidateAlignment checks that chunks are individually valid and that,
// taken in order, they exactly partition sequences of length refLen and
// hypLen.
func ValidateAlignment(chunks []Chunk, refLen, hypLen int) error {
	ref, hyp := 0, 0
	for i, c := range chunks {
		if err := c.Validate(refLen, hypLen); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if c.RefStart != ref || c.HypStart != hyp {
			return fmt.Errorf("%w: chunk %d starts at ref %d hyp %d, want ref %d hyp %d",
				ErrMalformedAlignment, i, c.RefStart, c.HypStart, ref, hyp)
		}
		ref, hyp = c.RefEnd, c.HypEnd
	}
	if ref != refLen || hyp != hypLen {
		return fmt.Errorf("%w: chunks cover ref %d/%d hyp %d/%d",
			ErrMalformedAlignment, ref, refLen, hyp, hypLen)
	}
	return nil
}
