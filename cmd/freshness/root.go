package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ericselin/freshness/catalog"
	"github.com/ericselin/freshness/config"
	"github.com/ericselin/freshness/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliOptions struct {
	configFile   string
	traceLogging bool
	logFile      string

	config config.Config
	// closers run after the command, e.g. for the sqlite backend
	closers []func() error
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{}

	root := &cobra.Command{
		Use:           "freshness",
		Short:         "Serve a product catalog under on-demand, per-request and frozen freshness policies",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(cmd.ErrOrStderr(), &opts); err != nil {
				return err
			}
			return opts.loadConfig()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			for _, c := range opts.closers {
				if err := c(); err != nil {
					log.Warn().Err(err).Msg("Could not close backend")
				}
			}
		},
	}
	root.PersistentFlags().AddFlagSet(globalFlags(&opts))

	root.AddCommand(
		newServeCmd(&opts),
		newBuildCmd(&opts),
		newFetchCmd(&opts),
		newImportCmd(&opts),
	)
	return root
}

func globalFlags(opts *cliOptions) *pflag.FlagSet {
	flags := pflag.NewFlagSet("global", pflag.ContinueOnError)
	flags.StringVar(&opts.configFile, "config", "", "YAML config file (defaults are used if not given)")
	flags.BoolVar(&opts.traceLogging, "vv", false, "Verbosity: trace logging")
	flags.StringVar(&opts.logFile, "log-file", "", "Log file to use (in addition to stderr)")
	return flags
}

func setupLogging(out io.Writer, opts *cliOptions) error {
	logLevel := zerolog.DebugLevel
	if opts.traceLogging {
		logLevel = zerolog.TraceLevel
	}

	// console output, plus the log file if specified
	logOutputs := []io.Writer{zerolog.ConsoleWriter{Out: out}}
	if opts.logFile != "" {
		logFileOutput, err := os.OpenFile(opts.logFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		logOutputs = append(logOutputs, logFileOutput)
		opts.closers = append(opts.closers, logFileOutput.Close)
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = zerolog.New(multiWriter).Level(logLevel).
		With().Timestamp().Str("version", version).Logger()
	return nil
}

func (opts *cliOptions) loadConfig() error {
	if opts.configFile == "" {
		opts.config = config.Default()
		return nil
	}
	c, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	opts.config = c
	return nil
}

// backend opens the source behind /api/products.
func (opts *cliOptions) backend() (catalog.DataSource, error) {
	b := opts.config.Backend
	switch b.Kind {
	case config.BackendFile:
		return catalog.FileSource{Path: b.Path}, nil
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(b.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", b.Path, err)
		}
		opts.closers = append(opts.closers, s.Close)
		return s, nil
	case config.BackendMemory:
		c, err := catalog.FixtureSource{}.FetchCatalog(context.Background())
		if err != nil {
			return nil, err
		}
		return store.NewMemStore(c), nil
	}
	return catalog.FixtureSource{}, nil
}

// pageSource is what catalog pages resolve through: the origin if one is
// configured, the backend otherwise.
func (opts *cliOptions) pageSource(backend catalog.DataSource) catalog.DataSource {
	if opts.config.Origin != "" {
		return catalog.NewHTTPSource(opts.config.Origin, opts.config.OriginTimeout)
	}
	return backend
}
