// Command foodsec ingests food-security survey extracts into SQL and serves
// filtered and aggregated views of them over HTTP.
//
//	foodsec validate --config foodsecurityconfig.json
//	foodsec ingest dec19pub.csv dec20pub.csv.gz s3://bucket/dec21pub.csv
//	foodsec serve --ingest
//	foodsec export --state CA --year 2021 --out ca2021.parquet
//
// Every flag defaults to its FOODSEC_* environment variable.
package main

import (
	"github.com/spf13/cobra"

	"foodsecurity/internal/config"

	// register all backends with the storage factory.
	_ "foodsecurity/internal/storage/all"
)

func main() {
	s, err := config.LoadSettings()
	if err != nil {
		config.Exitf("foodsec: %v", err)
	}
	if err := newRootCmd(&s).Execute(); err != nil {
		config.Exitf("foodsec: %v", err)
	}
}

// newRootCmd builds the command tree. Flag defaults come from s, which the
// flags write back into.
func newRootCmd(s *config.Settings) *cobra.Command {
	root := &cobra.Command{
		Use:   "foodsec",
		Short: "Food-security survey ingestion and query API",
		Long: `foodsec loads Current Population Survey food-security extracts into a
relational table, translating categorical codes to labels, and serves
filtered records plus counts and percentages by demographic factor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.ConfigPath, "config", s.ConfigPath, "mapping file (JSON) [FOODSEC_CONFIG]")
	pf.StringVar(&s.StorageKind, "storage", s.StorageKind, "storage backend: sqlite, postgres, mysql, mssql [FOODSEC_STORAGE]")
	pf.StringVar(&s.DSN, "dsn", s.DSN, "database DSN [FOODSEC_DSN]")

	root.AddCommand(validateCmd(s))
	root.AddCommand(ingestCmd(s))
	root.AddCommand(serveCmd(s))
	root.AddCommand(exportCmd(s))
	return root
}
