package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/alteval/internal/report"
)

func newTokenizeCmd(root *rootOptions) *cobra.Command {
	var (
		language string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "tokenize [text]",
		Short: "Print the tagged tokens of a text",
		Long: `Tokenize the text given as argument, or stdin when no argument is given,
and print one token per line followed by its tags.`,
		Example: `  alteval tokenize -l fr "T'avais fait l'amour"
  alteval tokenize --json < lyrics.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			a, err := root.newApp()
			if err != nil {
				return err
			}
			tokens, code, err := a.Tokenize(text, language)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Language string         `json:"language"`
					Tokens   []report.Token `json:"tokens"`
				}{code, report.Tokens(tokens)})
			}
			for _, tok := range report.Tokens(tokens) {
				fmt.Fprintf(out, "%s\t%s\n", tok.Text, strings.Join(tok.Tags, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "language code or English name (default: first configured language)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of one token per line")
	return cmd
}
