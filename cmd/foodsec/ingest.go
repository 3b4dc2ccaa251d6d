package main

import (
	"github.com/spf13/cobra"

	"foodsecurity/internal/config"
)

func ingestCmd(s *config.Settings) *cobra.Command {
	var listFile string

	cmd := &cobra.Command{
		Use:   "ingest [file|url ...]",
		Short: "Load survey extracts into the database in one transaction",
		Long: `Reads every extract, renames and projects its columns, maps codes to
labels and inserts all rows in one transaction. Nothing is committed if any
step fails. Re-running appends duplicate rows.

Inputs may be local paths or file://, s3:// or gs:// URLs, optionally .gz or
.zst compressed. Without arguments the --list file is read, and without that
FOODSEC_CSV_FILES is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(s.ConfigPath)
			if err != nil {
				return err
			}
			inputs, err := resolveInputs(ctx, args, listFile, s.CSVFiles)
			if err != nil {
				return err
			}

			_, flush := setupMetrics(s, "ingest")
			defer flush()

			repo, err := openRepository(ctx, s)
			if err != nil {
				return err
			}
			defer repo.Close()

			sum, err := runIngest(ctx, cfg, repo, s, inputs)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	addIngestFlags(cmd, s)
	cmd.Flags().StringVar(&listFile, "list", "", "file or URL listing one extract per line")
	return cmd
}

func addIngestFlags(cmd *cobra.Command, s *config.Settings) {
	f := cmd.Flags()
	f.IntVar(&s.BatchSize, "batch-size", s.BatchSize, "rows per insert batch [FOODSEC_BATCH_SIZE]")
	f.IntVar(&s.ReadWorkers, "read-workers", s.ReadWorkers, "files read concurrently [FOODSEC_READ_WORKERS]")
	f.BoolVar(&s.StrictCodes, "strict-codes", s.StrictCodes, "fail on codes missing from the mapping instead of storing NULL [FOODSEC_STRICT_CODES]")
	f.StringVar(&s.PushgatewayURL, "pushgateway-url", s.PushgatewayURL, "push ingest metrics to this Pushgateway [FOODSEC_PUSHGATEWAY_URL]")
	f.StringVar(&s.StatsdAddr, "statsd-addr", s.StatsdAddr, "also send metrics to this DogStatsD agent [FOODSEC_STATSD_ADDR]")
}
