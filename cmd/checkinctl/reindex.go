package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild registrations_email from registrations_id",
		Long: `Rebuild the email-indexed registrations from the id-indexed ones.

When several registrations share an email, the one with the latest EndDate wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Registrations.ReindexByEmail(ctx)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registrations: %d, emails indexed: %d, skipped: %d\n", res.Registrations, res.Emails, res.Skipped)
			return nil
		},
	}
}
