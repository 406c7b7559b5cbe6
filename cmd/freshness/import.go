package main

import (
	"fmt"

	"github.com/ericselin/freshness/catalog"
	"github.com/ericselin/freshness/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *cliOptions) *cobra.Command {
	var (
		db   string
		from string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON catalog into the sqlite backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var source catalog.DataSource = catalog.FixtureSource{}
			if from != "" {
				source = catalog.FileSource{Path: from}
			}
			c, err := source.FetchCatalog(cmd.Context())
			if err != nil {
				return err
			}

			s, err := store.NewSQLiteStore(db)
			if err != nil {
				return fmt.Errorf("open %s: %w", db, err)
			}
			defer s.Close()
			if err := s.Replace(cmd.Context(), c); err != nil {
				return err
			}
			n, err := s.Count(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Str("db", db).Int("products", n).Msg("Imported catalog")
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database file")
	cmd.Flags().StringVar(&from, "from", "", "JSON catalog to import (built-in fixture if not given)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}
