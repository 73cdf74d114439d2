// Package report renders evaluation results as JSON, a plain-text table or
// a standalone HTML page.
//
// Undefined metrics (NaN, for example precision over a corpus without any
// predicted punctuation) are written as JSON null, "-" in text and "n/a" in
// HTML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/MrWong99/alteval/pkg/evaluate"
	"github.com/MrWong99/alteval/pkg/types"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatText, FormatHTML}

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("report: unknown format %q", s)
	}
	return f, nil
}

// Score is a metric value that encodes NaN and infinities as JSON null.
type Score float64

// MarshalJSON implements [json.Marshaler].
func (s Score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// Item is the per-pair section of a [Document].
type Item struct {
	ID             string `json:"id,omitempty"`
	Language       string `json:"language"`
	ReferenceWords int    `json:"reference_words"`
	Hits           int    `json:"hits"`
	Substitutions  int    `json:"substitutions"`
	Deletions      int    `json:"deletions"`
	Insertions     int    `json:"insertions"`
	CaseErrors     int    `json:"case_errors"`
	WER            Score  `json:"wer"`
	ErrorsHTML     string `json:"errors_html,omitempty"`
}

// Document is the serialisable form of an [evaluate.Result].
type Document struct {
	Name    string                           `json:"name,omitempty"`
	Metrics map[string]Score                 `json:"metrics"`
	Counts  map[string]evaluate.EditOpCounts `json:"counts"`
	Errors  evaluate.ErrorCounts             `json:"errors"`
	Items   []Item                           `json:"items"`
}

// NewDocument converts res. ids names the items in order; missing IDs are
// left empty.
func NewDocument(name string, ids []string, res *evaluate.Result) *Document {
	d := &Document{
		Name:    name,
		Metrics: make(map[string]Score),
		Counts:  make(map[string]evaluate.EditOpCounts, types.NumTags),
		Errors:  res.Errors.Clone(),
		Items:   make([]Item, len(res.Items)),
	}
	for k, v := range res.Scores() {
		d.Metrics[k] = Score(v)
	}
	d.Counts[types.TagWord.String()] = res.WordCounts.Of(types.TagWord)
	for _, tag := range evaluate.StructuralTags {
		d.Counts[tag.String()] = res.StructuralCounts.Of(tag)
	}
	for i, it := range res.Items {
		d.Items[i] = Item{
			Language:       it.Language,
			ReferenceWords: it.ReferenceWords,
			Hits:           it.Hits,
			Substitutions:  it.Substitutions,
			Deletions:      it.Deletions,
			Insertions:     it.Insertions,
			CaseErrors:     it.CaseErrors,
			WER:            Score(it.WER),
		}
		if i < len(ids) {
			d.Items[i].ID = ids[i]
		}
		if i < len(res.ErrorsHTML) {
			d.Items[i].ErrorsHTML = res.ErrorsHTML[i]
		}
	}
	return d
}

// MetricNames returns the metric keys of d in report order: word metrics
// first, then the structural metrics grouped by tag.
func (d *Document) MetricNames() []string {
	order := []string{"WER", "MER", "WIL", "ER_case"}
	for _, tag := range evaluate.StructuralTags {
		s := evaluate.ShortName(tag)
		order = append(order, "P_"+s, "R_"+s, "F1_"+s)
	}
	order = append(order, "SUB_phonetic")

	names := make([]string, 0, len(d.Metrics))
	for _, k := range order {
		if _, ok := d.Metrics[k]; ok {
			names = append(names, k)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(d.Metrics)) {
		if !slices.Contains(names, k) {
			names = append(names, k)
		}
	}
	return names
}

// Write renders d in format f.
func Write(w io.Writer, f Format, d *Document) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, d)
	case FormatText:
		return WriteText(w, d)
	case FormatHTML:
		return WriteHTML(w, d)
	default:
		return fmt.Errorf("report: unknown format %q", f)
	}
}

// WriteJSON writes d as indented JSON.
func WriteJSON(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

func formatScore(s Score, undefined string) string {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return undefined
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}
