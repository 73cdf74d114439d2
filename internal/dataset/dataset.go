// Package dataset loads evaluation corpora from YAML manifests.
//
// A manifest lists reference/hypothesis pairs either inline or as files
// relative to the manifest:
//
//	name: "jam-alt test"
//	language: en
//	items:
//	  - id: "song-1"
//	    reference_file: refs/song-1.txt
//	    hypothesis_file: hyps/song-1.txt
//	  - id: "song-2"
//	    language: de
//	    reference: "Wie'n Stern"
//	    hypothesis: "wie ein Stern"
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/alteval/pkg/lang"
)

// ErrInvalidManifest wraps every validation problem found by
// [Manifest.Validate].
var ErrInvalidManifest = errors.New("dataset: invalid manifest")

// Manifest is the top-level structure of a dataset YAML file.
type Manifest struct {
	// Name is a display name used in reports.
	Name string `yaml:"name"`

	// Language applies to every item that names none.
	Language string `yaml:"language"`

	Items []Item `yaml:"items"`
}

// Item is one reference/hypothesis pair. Each side is given either inline
// or as a file path; relative paths are resolved against the manifest
// directory by [Load].
type Item struct {
	ID             string `yaml:"id"`
	Language       string `yaml:"language"`
	Reference      string `yaml:"reference"`
	ReferenceFile  string `yaml:"reference_file"`
	Hypothesis     string `yaml:"hypothesis"`
	HypothesisFile string `yaml:"hypothesis_file"`
}

// Load reads a manifest from disk, validates it and reads every referenced
// text file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open manifest %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: parse manifest %q: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := m.ReadFiles(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFromReader parses manifest YAML from an [io.Reader] without
// validating it or reading any files.
func LoadFromReader(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("dataset: decode manifest yaml: %w", err)
	}
	return &m, nil
}

// Validate checks the manifest for structural problems and reports all of
// them at once, each wrapping [ErrInvalidManifest].
//
// Rules:
//   - At least one item.
//   - Item IDs must be non-empty and unique.
//   - Each side is given inline or as a file, not both.
//   - Every language must resolve with [lang.Resolve].
func (m *Manifest) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidManifest}, args...)...))
	}

	if len(m.Items) == 0 {
		fail("no items")
	}
	if m.Language != "" {
		if _, err := lang.Resolve(m.Language); err != nil {
			fail("language: %v", err)
		}
	}

	seen := make(map[string]int, len(m.Items))
	for i, it := range m.Items {
		switch prev, dup := seen[it.ID]; {
		case it.ID == "":
			fail("items[%d]: id must not be empty", i)
		case dup:
			fail("items[%d]: id %q already used by items[%d]", i, it.ID, prev)
		default:
			seen[it.ID] = i
		}
		if it.Reference != "" && it.ReferenceFile != "" {
			fail("items[%d]: reference and reference_file are mutually exclusive", i)
		}
		if it.Hypothesis != "" && it.HypothesisFile != "" {
			fail("items[%d]: hypothesis and hypothesis_file are mutually exclusive", i)
		}
		if it.Language != "" {
			if _, err := lang.Resolve(it.Language); err != nil {
				fail("items[%d]: language: %v", i, err)
			}
		}
	}

	return errors.Join(errs...)
}

// ReadFiles replaces every *_file entry with the content of that file.
// Relative paths are resolved against dir.
func (m *Manifest) ReadFiles(dir string) error {
	for i := range m.Items {
		it := &m.Items[i]
		if err := readInto(dir, &it.ReferenceFile, &it.Reference); err != nil {
			return fmt.Errorf("dataset: item %q reference: %w", it.ID, err)
		}
		if err := readInto(dir, &it.HypothesisFile, &it.Hypothesis); err != nil {
			return fmt.Errorf("dataset: item %q hypothesis: %w", it.ID, err)
		}
	}
	return nil
}

func readInto(dir string, path, text *string) error {
	if *path == "" {
		return nil
	}
	p := *path
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	*text = string(data)
	*path = ""
	return nil
}

// Corpus returns the parallel reference, hypothesis and language slices of
// the manifest, ready for evaluation. Items without a language of their own
// inherit the manifest language, or fallback when that is empty too.
func (m *Manifest) Corpus(fallback string) (references, hypotheses, languages []string) {
	references = make([]string, len(m.Items))
	hypotheses = make([]string, len(m.Items))
	languages = make([]string, len(m.Items))
	for i, it := range m.Items {
		references[i] = it.Reference
		hypotheses[i] = it.Hypothesis
		switch {
		case it.Language != "":
			languages[i] = it.Language
		case m.Language != "":
			languages[i] = m.Language
		default:
			languages[i] = fallback
		}
	}
	return references, hypotheses, languages
}

// IDs returns the item IDs in order.
func (m *Manifest) IDs() []string {
	ids := make([]string, len(m.Items))
	for i, it := range m.Items {
		ids[i] = it.ID
	}
	return ids
}
