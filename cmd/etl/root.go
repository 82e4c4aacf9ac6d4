package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/config"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "etl",
		Short: "Ingest USGS earthquake events into the data lake",
		Long: `etl copies one day of USGS earthquake events into
s3://<bucket>/<layer>/<source>/<run-date>/part-000.parquet.

Configuration comes from environment variables; see "etl run --help".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return a.init(cmd.Context(), cfg)
		},
	}

	root.AddCommand(
		newRunCmd(a),
		newBackfillCmd(a),
		newVerifyCmd(a),
	)
	return root
}
