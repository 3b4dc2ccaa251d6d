package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"foodsecurity/internal/config"
	"foodsecurity/internal/httpapi"
	"foodsecurity/internal/query"
)

func serveCmd(s *config.Settings) *cobra.Command {
	var withIngest bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API",
		Long: `Creates the schema if needed and serves the query API. With --ingest the
configured extracts (--csv / FOODSEC_CSV_FILES) are loaded first; a failed
ingestion aborts startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(s.ConfigPath)
			if err != nil {
				return err
			}
			metricsHandler, flush := setupMetrics(s, "serve")
			defer flush()

			repo, err := openRepository(ctx, s)
			if err != nil {
				return err
			}
			defer repo.Close()

			if withIngest {
				sum, err := runIngest(ctx, cfg, repo, s, s.CSVFiles)
				if err != nil {
					return err
				}
				printSummary(cmd.ErrOrStderr(), sum)
			}

			srv := httpapi.NewServer(httpapi.Config{Addr: s.Addr, Metrics: metricsHandler}, query.NewService(cfg, repo), repo)
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&s.Addr, "addr", s.Addr, "listen address [FOODSEC_ADDR]")
	cmd.Flags().BoolVar(&withIngest, "ingest", false, "ingest the configured extracts before serving")
	cmd.Flags().StringSliceVar(&s.CSVFiles, "csv", s.CSVFiles, "extracts loaded by --ingest [FOODSEC_CSV_FILES]")
	addIngestFlags(cmd, s)
	return cmd
}
