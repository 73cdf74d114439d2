package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/alteval/internal/app"
	"github.com/MrWong99/alteval/internal/dataset"
	"github.com/MrWong99/alteval/internal/report"
	"github.com/MrWong99/alteval/pkg/evaluate"
)

type evalOptions struct {
	manifest        string
	references      []string
	hypotheses      []string
	languages       []string
	format          string
	output          string
	visualize       bool
	normalize       bool
	phonetic        bool
	workers         int
	noSubstitutions bool
}

func newEvalCmd(root *rootOptions) *cobra.Command {
	o := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate transcriptions against reference lyrics",
		Long: `Evaluate a corpus given either as a YAML manifest (--manifest) or as
parallel lists of reference and hypothesis files (--reference, --hypothesis).

Metrics are written as JSON by default; --format text prints tables and
--format html writes a standalone page with per-song diffs.`,
		Example: `  alteval eval --manifest jamendo.yaml --format text
  alteval eval -r ref/song.txt -H hyp/song.txt -l de
  alteval eval -m corpus.yaml --visualize -f html -o report.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, root)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.manifest, "manifest", "m", "", "YAML manifest listing the corpus")
	f.StringSliceVarP(&o.references, "reference", "r", nil, "reference lyrics file (repeatable)")
	f.StringSliceVarP(&o.hypotheses, "hypothesis", "H", nil, "hypothesis lyrics file (repeatable)")
	f.StringSliceVarP(&o.languages, "language", "l", nil, "language of all items, or one per item")
	f.StringVarP(&o.format, "format", "f", string(report.FormatJSON), "output format: json, text or html")
	f.StringVarP(&o.output, "output", "o", "", "write the report to this file instead of stdout")
	f.BoolVar(&o.visualize, "visualize", false, "render a diff per item")
	f.BoolVar(&o.normalize, "normalize", false, "normalize hypotheses before scoring")
	f.BoolVar(&o.phonetic, "phonetic", false, "report the share of sound-alike substitutions")
	f.IntVarP(&o.workers, "workers", "j", 0, "concurrent tokenization/alignment workers (0: config or GOMAXPROCS)")
	f.BoolVar(&o.noSubstitutions, "no-substitutions", false, "count substituted structural tokens as deletion plus insertion")
	cmd.MarkFlagsMutuallyExclusive("manifest", "reference")
	cmd.MarkFlagsMutuallyExclusive("manifest", "hypothesis")
	return cmd
}

func (o *evalOptions) run(cmd *cobra.Command, root *rootOptions) error {
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return err
	}

	ec := &root.cfg.Evaluation
	flags := cmd.Flags()
	if flags.Changed("visualize") {
		ec.VisualizeErrors = o.visualize
	}
	if flags.Changed("normalize") {
		ec.NormalizeHypotheses = o.normalize
	}
	if flags.Changed("phonetic") {
		ec.PhoneticSubstitutions = o.phonetic
	}
	if flags.Changed("workers") {
		ec.Workers = o.workers
	}
	if flags.Changed("no-substitutions") {
		ec.CountSubstitutions = !o.noSubstitutions
	}
	// HTML reports are mostly diffs.
	if format == report.FormatHTML && !flags.Changed("visualize") {
		ec.VisualizeErrors = true
	}

	name, ids, req, err := o.corpus(root)
	if err != nil {
		return err
	}

	a, err := root.newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("evaluating", "items", len(req.References), "format", format)
	res, err := a.Evaluate(ctx, req)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := report.Write(w, format, report.NewDocument(name, ids, res)); err != nil {
		return err
	}
	if o.output != "" {
		slog.Info("report written", "path", o.output)
	}
	return nil
}

// corpus assembles the evaluation request from the manifest or the file
// flags.
func (o *evalOptions) corpus(root *rootOptions) (name string, ids []string, req app.Request, err error) {
	if o.manifest != "" {
		m, err := dataset.Load(o.manifest)
		if err != nil {
			return "", nil, app.Request{}, err
		}
		fallback := evaluate.DefaultLanguage
		if len(o.languages) == 1 {
			fallback = o.languages[0]
		} else if langs := root.cfg.Evaluation.Languages; len(langs) == 1 {
			fallback = langs[0]
		}
		refs, hyps, langs := m.Corpus(fallback)
		name = m.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(o.manifest), filepath.Ext(o.manifest))
		}
		return name, m.IDs(), app.Request{References: refs, Hypotheses: hyps, Languages: langs}, nil
	}

	if len(o.references) == 0 {
		return "", nil, app.Request{}, errors.New("either --manifest or --reference/--hypothesis is required")
	}
	if len(o.references) != len(o.hypotheses) {
		return "", nil, app.Request{}, fmt.Errorf("%d reference files but %d hypothesis files",
			len(o.references), len(o.hypotheses))
	}
	req.Languages = o.languages
	for _, path := range o.references {
		text, err := os.ReadFile(path)
		if err != nil {
			return "", nil, app.Request{}, fmt.Errorf("read reference: %w", err)
		}
		req.References = append(req.References, string(text))
		ids = append(ids, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	for _, path := range o.hypotheses {
		text, err := os.ReadFile(path)
		if err != nil {
			return "", nil, app.Request{}, fmt.Errorf("read hypothesis: %w", err)
		}
		req.Hypotheses = append(req.Hypotheses, string(text))
	}
	return "", ids, req, nil
}
