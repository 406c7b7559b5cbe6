package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ericselin/freshness"
	"github.com/ericselin/freshness/catalog"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newBuildCmd(opts *cliOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Resolve the frozen catalog once and write it as a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := opts.backend()
			if err != nil {
				return err
			}
			resolver := freshness.New(freshness.Config{Logger: &log.Logger})
			o, err := resolver.Warm(cmd.Context(), opts.pageSource(backend), freshness.NewProcessScope())
			if err != nil {
				return err
			}

			env := catalog.Envelope{
				Success:   o.OK(),
				Data:      o.Catalog,
				Timestamp: o.FetchedAt.UTC(),
			}
			if !o.OK() {
				env.Error = o.Err.Error()
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(env); err != nil {
				return err
			}

			if !o.OK() {
				// the failure is already logged by the resolver
				return exitSilent(1)
			}
			if out != "" {
				log.Info().Str("file", out).Int("products", len(o.Catalog)).Msg("Wrote catalog snapshot")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "File to write the snapshot to (stdout if not given)")
	return cmd
}
