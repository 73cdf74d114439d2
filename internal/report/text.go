package report

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteText writes d as aligned plain-text tables: the corpus metrics, then
// one row per item.
func WriteText(w io.Writer, d *Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if d.Name != "" {
		fmt.Fprintf(tw, "%s\n\n", d.Name)
	}
	fmt.Fprintln(tw, "METRIC\tVALUE")
	for _, name := range d.MetricNames() {
		fmt.Fprintf(tw, "%s\t%s\n", name, formatScore(d.Metrics[name], "-"))
	}

	if len(d.Items) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ITEM\tLANG\tWORDS\tHIT\tSUB\tDEL\tINS\tCASE\tWER")
		for i, it := range d.Items {
			id := it.ID
			if id == "" {
				id = fmt.Sprint(i)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
				id, it.Language, it.ReferenceWords, it.Hits, it.Substitutions,
				it.Deletions, it.Insertions, it.CaseErrors, formatScore(it.WER, "-"))
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: write text: %w", err)
	}
	return nil
}
