// Package evaluate scores lyrics transcripts against reference lyrics.
//
// An [Evaluator] runs a corpus through three stages:
//
//  1. Tokenize. Every reference and hypothesis is tokenized with the rules
//     of its language into tagged tokens.
//
//  2. Align. Each pair is aligned twice on lower-cased token texts: once
//     over the word projection (see [types.Words]) and once over the full
//     token sequence.
//
//  3. Count. The chunks of every alignment are tallied per tag (see
//     [ProcessChunk]). Word alignments yield WER, MER, WIL and the case
//     error rate; full alignments yield precision, recall and F1 for
//     punctuation, parentheses, line breaks and section breaks.
//
// Tokenization and alignment run concurrently across pairs; counting runs
// in input order, so results do not depend on scheduling.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/alteval/internal/observe"
	"github.com/MrWong99/alteval/pkg/align"
	"github.com/MrWong99/alteval/pkg/lang"
	"github.com/MrWong99/alteval/pkg/normalize"
	"github.com/MrWong99/alteval/pkg/tokenize"
	"github.com/MrWong99/alteval/pkg/types"
)

// DefaultLanguage is used when an [Input] names no language.
const DefaultLanguage = "en"

var (
	// ErrLengthMismatch is returned when references and hypotheses (or
	// alignments) differ in number.
	ErrLengthMismatch = errors.New("evaluate: references and hypotheses differ in length")

	// ErrLanguageCount is returned when more than one language is given and
	// their number differs from the number of items.
	ErrLanguageCount = errors.New("evaluate: language count does not match item count")
)

// Option is a functional option for configuring an [Evaluator].
type Option func(*Evaluator)

// WithTokenizer sets the tokenizer. Default: [tokenize.New] without
// segmenters.
func WithTokenizer(t *tokenize.Tokenizer) Option {
	return func(e *Evaluator) {
		e.tokenizer = t
	}
}

// WithAligner sets the aligner. Default: [align.Levenshtein].
func WithAligner(a align.Aligner) Option {
	return func(e *Evaluator) {
		e.aligner = a
	}
}

// WithWorkers limits how many pairs are tokenized or aligned at once.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		e.workers = n
	}
}

// WithCountSubstitutions controls whether tags shared by substituted tokens
// count as substitutions (the default) or as a deletion plus an insertion.
func WithCountSubstitutions(enabled bool) Option {
	return func(e *Evaluator) {
		e.countSubstitutions = enabled
	}
}

// WithSoundAlike enables sound-alike analysis of substituted words.
func WithSoundAlike(j SoundAlikeJudge) Option {
	return func(e *Evaluator) {
		e.soundAlike = j
	}
}

// WithMetrics sets the telemetry instruments. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// Evaluator computes transcription metrics. It is safe for concurrent use.
type Evaluator struct {
	tokenizer          *tokenize.Tokenizer
	aligner            align.Aligner
	workers            int
	countSubstitutions bool
	soundAlike         SoundAlikeJudge
	metrics            *observe.Metrics
}

// New returns an Evaluator configured with the supplied options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		aligner:            align.Levenshtein{},
		countSubstitutions: true,
	}
	for _, o := range opts {
		o(e)
	}
	if e.tokenizer == nil {
		e.tokenizer = tokenize.New()
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Input is one corpus to evaluate.
type Input struct {
	References []string
	Hypotheses []string

	// Languages holds one language per item, or a single language applied
	// to every item. Empty means [DefaultLanguage]. Any identifier accepted
	// by [lang.Resolve] works.
	Languages []string

	// VisualizeErrors attaches an HTML diff of every pair to the result.
	VisualizeErrors bool

	// NormalizeHypotheses runs [normalize.LyricsIn] over every hypothesis
	// before tokenization.
	NormalizeHypotheses bool
}

// ItemResult holds the word-level outcome of one pair.
type ItemResult struct {
	Language       string  `json:"language"`
	ReferenceWords int     `json:"reference_words"`
	Hits           int     `json:"hits"`
	Substitutions  int     `json:"substitutions"`
	Deletions      int     `json:"deletions"`
	Insertions     int     `json:"insertions"`
	CaseErrors     int     `json:"case_errors"`
	WER            float64 `json:"wer"`
}

// Result holds the corpus-level metrics.
type Result struct {
	WER           float64
	MER           float64
	WIL           float64
	CaseErrorRate float64

	// SoundAlikeRate is the share of word substitutions judged to sound
	// like the reference word. It is only meaningful when SoundAlike is
	// true.
	SoundAlikeRate float64
	SoundAlike     bool

	// Structural holds precision, recall and F1 for each of
	// [StructuralTags].
	Structural map[types.Tag]PRF

	WordCounts       Counts
	StructuralCounts Counts
	Errors           ErrorCounts

	// ErrorsHTML holds one diff per item in input order when visualisation
	// was requested and is nil otherwise.
	ErrorsHTML []string

	Items []ItemResult
}

// Scores returns the numeric metrics under their report names: WER, MER,
// WIL, ER_case, P_/R_/F1_ followed by punc, pare, line or sect, and
// SUB_phonetic when sound-alike analysis ran.
func (r *Result) Scores() map[string]float64 {
	out := map[string]float64{
		"WER":     r.WER,
		"MER":     r.MER,
		"WIL":     r.WIL,
		"ER_case": r.CaseErrorRate,
	}
	for _, tag := range StructuralTags {
		prf := r.Structural[tag]
		s := ShortName(tag)
		out["P_"+s] = prf.Precision
		out["R_"+s] = prf.Recall
		out["F1_"+s] = prf.F1
	}
	if r.SoundAlike {
		out["SUB_phonetic"] = r.SoundAlikeRate
	}
	return out
}

// Map returns [Result.Scores] plus "errors_html" when diffs were rendered.
func (r *Result) Map() map[string]any {
	scores := r.Scores()
	out := make(map[string]any, len(scores)+1)
	for k, v := range scores {
		out[k] = v
	}
	if r.ErrorsHTML != nil {
		out["errors_html"] = r.ErrorsHTML
	}
	return out
}

// ComputeMetrics evaluates one corpus with a default [Evaluator] and returns
// the result as a metric-name mapping (see [Result.Map]).
func ComputeMetrics(ctx context.Context, references, hypotheses, languages []string, visualize bool) (map[string]any, error) {
	res, err := New().ComputeMetrics(ctx, Input{
		References:      references,
		Hypotheses:      hypotheses,
		Languages:       languages,
		VisualizeErrors: visualize,
	})
	if err != nil {
		return nil, err
	}
	return res.Map(), nil
}

// pair carries one item through the stages.
type pair struct {
	language string

	ref, hyp           []types.Token
	refWords, hypWords []types.Token

	wordChunks []types.Chunk
	fullChunks []types.Chunk
}

// ComputeMetrics evaluates in. It fails on the first item that cannot be
// tokenized or aligned; no partial result is returned.
func (e *Evaluator) ComputeMetrics(ctx context.Context, in Input) (res *Result, err error) {
	n := len(in.References)
	ctx, span := observe.StartSpan(ctx, "evaluate.ComputeMetrics",
		trace.WithAttributes(attribute.Int("pairs", n)))
	defer span.End()

	start := time.Now()
	e.metrics.ActiveEvaluations.Add(ctx, 1)
	defer func() {
		e.metrics.ActiveEvaluations.Add(ctx, -1)
		status := "ok"
		if err != nil {
			status = "error"
			observe.Fail(span, err)
		}
		e.metrics.RecordEvaluation(ctx, status, time.Since(start).Seconds())
	}()

	if len(in.Hypotheses) != n {
		return nil, fmt.Errorf("%w: %d references, %d hypotheses", ErrLengthMismatch, n, len(in.Hypotheses))
	}
	languages, err := resolveLanguages(in.Languages, n)
	if err != nil {
		return nil, err
	}

	pairs := make([]pair, n)
	for i := range pairs {
		pairs[i].language = languages[i]
	}

	if err := e.stage(ctx, observe.StageTokenize, pairs, func(i int, p *pair) error {
		return e.tokenizePair(i, p, in)
	}); err != nil {
		return nil, err
	}
	if err := e.stage(ctx, observe.StageAlign, pairs, e.alignPair); err != nil {
		return nil, err
	}

	countStart := time.Now()
	res, err = e.count(pairs, in.VisualizeErrors)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordStage(ctx, observe.StageCount, time.Since(countStart).Seconds())
	e.record(ctx, pairs)

	observe.Logger(ctx).Debug("evaluate: corpus evaluated",
		"pairs", n, "wer", res.WER, "duration", time.Since(start))
	return res, nil
}

// stage runs fn over every pair with at most e.workers goroutines.
func (e *Evaluator) stage(ctx context.Context, name string, pairs []pair, fn func(int, *pair) error) error {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i, &pairs[i])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	e.metrics.RecordStage(ctx, name, time.Since(start).Seconds())
	return nil
}

func (e *Evaluator) tokenizePair(i int, p *pair, in Input) error {
	hyp := in.Hypotheses[i]
	if in.NormalizeHypotheses {
		hyp = normalize.LyricsIn(hyp, lang.Tag(p.language))
	}

	var err error
	if p.ref, err = e.tokenizer.Tokenize(in.References[i], p.language); err != nil {
		return fmt.Errorf("evaluate: item %d reference: %w", i, err)
	}
	if p.hyp, err = e.tokenizer.Tokenize(hyp, p.language); err != nil {
		return fmt.Errorf("evaluate: item %d hypothesis: %w", i, err)
	}
	p.refWords = types.Words(p.ref)
	p.hypWords = types.Words(p.hyp)
	return nil
}

func (e *Evaluator) alignPair(i int, p *pair) error {
	var err error
	if p.wordChunks, err = e.aligner.Align(lowerTexts(p.refWords), lowerTexts(p.hypWords)); err != nil {
		return fmt.Errorf("evaluate: item %d: align words: %w", i, err)
	}
	if p.fullChunks, err = e.aligner.Align(lowerTexts(p.ref), lowerTexts(p.hyp)); err != nil {
		return fmt.Errorf("evaluate: item %d: align tokens: %w", i, err)
	}
	return nil
}

func (e *Evaluator) count(pairs []pair, visualize bool) (*Result, error) {
	wordOpts := ProcessOptions{CountSubstitutions: e.countSubstitutions, SoundAlike: e.soundAlike}
	fullOpts := ProcessOptions{CountSubstitutions: e.countSubstitutions, Visualize: visualize}

	res := &Result{
		Errors:     ErrorCounts{},
		Structural: make(map[types.Tag]PRF, len(StructuralTags)),
		Items:      make([]ItemResult, len(pairs)),
		SoundAlike: e.soundAlike != nil,
	}
	if visualize {
		res.ErrorsHTML = make([]string, 0, len(pairs))
	}

	wordAlignments := make([][]types.Chunk, len(pairs))
	refWords := 0
	for i := range pairs {
		p := &pairs[i]
		wt, err := ProcessPair(p.refWords, p.hypWords, p.wordChunks, wordOpts)
		if err != nil {
			return nil, fmt.Errorf("evaluate: item %d words: %w", i, err)
		}
		ft, err := ProcessPair(p.ref, p.hyp, p.fullChunks, fullOpts)
		if err != nil {
			return nil, fmt.Errorf("evaluate: item %d tokens: %w", i, err)
		}

		res.WordCounts.Merge(&wt.Counts)
		res.StructuralCounts.Merge(&ft.Counts)
		res.Errors.Merge(wt.Errors)
		if visualize {
			res.ErrorsHTML = append(res.ErrorsHTML, ft.Diffs...)
		}

		m := align.Measure([][]types.Chunk{p.wordChunks})
		res.Items[i] = ItemResult{
			Language:       p.language,
			ReferenceWords: len(p.refWords),
			Hits:           m.Hits,
			Substitutions:  m.Substitutions,
			Deletions:      m.Deletions,
			Insertions:     m.Insertions,
			CaseErrors:     wt.Errors[ErrorCase],
			WER:            m.WER,
		}
		wordAlignments[i] = p.wordChunks
		refWords += len(p.refWords)
	}

	m := align.Measure(wordAlignments)
	res.WER, res.MER, res.WIL = m.WER, m.MER, m.WIL
	res.CaseErrorRate = ratio(float64(res.Errors[ErrorCase]), float64(refWords))
	res.SoundAlikeRate = math.NaN()
	if res.SoundAlike {
		res.SoundAlikeRate = ratio(float64(res.Errors[ErrorPhonetic]), float64(m.Substitutions))
	}
	for _, tag := range StructuralTags {
		res.Structural[tag] = ComputePRF(res.StructuralCounts.Of(tag))
	}
	return res, nil
}

func (e *Evaluator) record(ctx context.Context, pairs []pair) {
	perLanguage := make(map[string]int64)
	var refTokens, hypTokens int64
	for i := range pairs {
		perLanguage[pairs[i].language]++
		refTokens += int64(len(pairs[i].ref))
		hypTokens += int64(len(pairs[i].hyp))
	}
	for code, n := range perLanguage {
		e.metrics.RecordPairs(ctx, code, n)
	}
	e.metrics.RecordTokens(ctx, "reference", refTokens)
	e.metrics.RecordTokens(ctx, "hypothesis", hypTokens)
}

// resolveLanguages expands ids to one resolved code per item.
func resolveLanguages(ids []string, n int) ([]string, error) {
	switch {
	case len(ids) == 0:
		ids = []string{DefaultLanguage}
	case len(ids) != 1 && len(ids) != n:
		return nil, fmt.Errorf("%w: %d languages for %d items", ErrLanguageCount, len(ids), n)
	}

	resolved := make(map[string]string, len(ids))
	out := make([]string, n)
	for i := range out {
		id := ids[0]
		if len(ids) > 1 {
			id = ids[i]
		}
		code, ok := resolved[id]
		if !ok {
			var err error
			if code, err = lang.Resolve(id); err != nil {
				return nil, fmt.Errorf("evaluate: item %d: %w", i, err)
			}
			resolved[id] = code
		}
		out[i] = code
	}
	return out, nil
}

func lowerTexts(tokens []types.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = strings.ToLower(t.Text)
	}
	return out
}
