package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"foodsecurity/internal/config"
	"foodsecurity/internal/export"
	"foodsecurity/internal/query"
)

func exportCmd(s *config.Settings) *cobra.Command {
	var (
		state, year, out string
		limit            int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered records as Parquet",
		Long: `Runs the raw filtered fetch and writes the rows as zstd-compressed Parquet
to a local path or a file://, s3:// or gs:// URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(s.ConfigPath)
			if err != nil {
				return err
			}
			repo, err := openRepository(ctx, s)
			if err != nil {
				return err
			}
			defer repo.Close()

			svc := query.NewService(cfg, repo)
			f, err := svc.Filter(state, year)
			if err != nil {
				return err
			}
			n, err := export.Records(ctx, svc, f, limit, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported rows=%d to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", query.All, "state code or All")
	cmd.Flags().StringVar(&year, "year", query.All, "survey year or All")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows; 0 exports every row")
	cmd.Flags().StringVar(&out, "out", "", "output path or blob URL")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
