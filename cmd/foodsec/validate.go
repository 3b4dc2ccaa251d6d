package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foodsecurity/internal/config"
)

func validateCmd(s *config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the mapping file and print every issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(s.ConfigPath)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			f, err := config.Decode(b)
			if err != nil {
				return err
			}
			_, issues := config.Build(f)
			out := cmd.OutOrStdout()
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if err := config.IssuesError(issues); err != nil {
				return fmt.Errorf("configuration is invalid: %s", s.ConfigPath)
			}
			fmt.Fprintf(out, "configuration is valid: %s\n", s.ConfigPath)
			return nil
		},
	}
}
