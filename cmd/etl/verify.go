package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/secrets"
	"github.com/couchcryptid/quake-data-etl/internal/tabular"
)

// verifyReport is printed by "etl verify".
type verifyReport struct {
	URI         string   `json:"uri"`
	Rows        int64    `json:"rows"`
	Bytes       int64    `json:"bytes"`
	Columns     []string `json:"columns"`
	Codecs      []string `json:"codecs"`
	Compression string   `json:"compression"`
	OK          bool     `json:"ok"`
}

func newVerifyCmd(a *app) *cobra.Command {
	var runDate string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a written partition",
		Long: `verify downloads the partition for --run-date, reads its Parquet footer
and checks that every column chunk uses the configured COMPRESSION.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := domain.ParseDate(runDate)
			if err != nil {
				return fmt.Errorf("invalid --run-date: %w", err)
			}
			part := a.cfg.Partition(d)

			creds, err := secrets.LoadCredentials(cmd.Context(), a.secretStore(), a.cfg.AccessKeyName, a.cfg.SecretKeyName)
			if err != nil {
				return fmt.Errorf("resolve credentials: %w", err)
			}
			store, err := a.storeFactory()(cmd.Context(), objectstore.Config{
				Endpoint:    a.cfg.StorageEndpoint,
				Region:      a.cfg.StorageRegion,
				URLStyle:    a.cfg.StorageURLStyle,
				UseSSL:      a.cfg.StorageUseSSL,
				Bucket:      part.Bucket,
				Credentials: creds,
			})
			if err != nil {
				return creds.RedactError(err)
			}
			data, err := store.Get(cmd.Context(), part.Key())
			if err != nil {
				return creds.RedactError(err)
			}

			report, err := verifyPartition(part, data)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.OK {
				return fmt.Errorf("%s: codecs %v, want %s", report.URI, report.Codecs, report.Compression)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runDate, "run-date", "", "run date to verify (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("run-date")
	return cmd
}

// verifyPartition inspects the object body of part. A zero-row partition
// has no column chunks and passes on its footer alone.
func verifyPartition(part domain.Partition, data []byte) (verifyReport, error) {
	info, err := tabular.Inspect(data)
	if err != nil {
		return verifyReport{}, fmt.Errorf("inspect %s: %w", part.URI(), err)
	}
	ok := len(info.Codecs) == 0 || (len(info.Codecs) == 1 && slices.Contains(info.Codecs, part.Compression))
	return verifyReport{
		URI:         part.URI(),
		Rows:        info.Rows,
		Bytes:       info.Size,
		Columns:     info.Columns,
		Codecs:      info.Codecs,
		Compression: part.Compression,
		OK:          ok,
	}, nil
}
