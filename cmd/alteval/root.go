package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/alteval/internal/app"
	"github.com/MrWong99/alteval/internal/config"
	"github.com/MrWong99/alteval/pkg/segment/kagome"
)

// rootOptions holds the persistent flags and the state they produce.
type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool

	cfg   *config.Config
	level *slog.LevelVar
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{level: new(slog.LevelVar)}

	cmd := &cobra.Command{
		Use:   "alteval",
		Short: "Tag-aware evaluation of lyrics transcriptions",
		Long: `alteval scores automatic lyrics transcriptions against reference lyrics.
Besides word error rates it reports precision, recall and F1 for punctuation,
parentheses, line breaks and section breaks, and the rate of case errors.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd.ErrOrStderr())
		},
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().BoolVarP(&o.quiet, "quiet", "q", false, "suppress non-error output")

	cmd.AddCommand(
		newEvalCmd(o),
		newTokenizeCmd(o),
		newServeCmd(o),
		newMCPCmd(o),
	)
	return cmd
}

// setup loads the configuration and installs the default logger.
func (o *rootOptions) setup(stderr io.Writer) error {
	if o.configPath == "" {
		o.cfg = config.Default()
	} else {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("config file %q not found", o.configPath)
			}
			return err
		}
		o.cfg = cfg
	}

	o.level.Set(o.cfg.LogLevel.Level())
	if o.verbose {
		o.level.Set(slog.LevelDebug)
	}
	if o.quiet {
		o.level.Set(slog.LevelError)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: o.level})))
	return nil
}

// newApp builds the application from the loaded configuration.
func (o *rootOptions) newApp(opts ...app.Option) (*app.App, error) {
	reg := config.NewRegistry()
	registerBuiltinSegmenters(reg)

	// -v and -q win over the config file, so reloads must not reset them.
	if !o.verbose && !o.quiet {
		opts = append(opts, app.WithLevelVar(o.level))
	}
	return app.New(o.cfg, reg, opts...)
}

// registerBuiltinSegmenters wires the segmenters that ship with alteval
// into reg.
func registerBuiltinSegmenters(reg *config.Registry) {
	reg.RegisterSegmenter(kagome.Name, kagome.Factory())
	for _, name := range reg.Segmenters() {
		slog.Debug("registered segmenter", "name", name)
	}
}
