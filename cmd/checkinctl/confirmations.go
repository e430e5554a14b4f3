package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func sendConfirmationsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "send-confirmations",
		Short: "Send the check-in confirmation email to every attendee still due one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if dryRun {
				due, err := a.Confirmations.Due(ctx)
				if err != nil {
					return err
				}
				for _, p := range due {
					fmt.Fprintf(out, "%s\t%s\t%s\n", p.AttendeeID, p.Email, p.CheckedInAt)
				}
				fmt.Fprintf(out, "%d due\n", len(due))
				return nil
			}
			sum, err := a.Confirmations.SendAll(ctx)
			fmt.Fprintf(out, "due: %d, sent: %d, queued: %d\n", sum.Due, sum.Sent, sum.Queued)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list due confirmations without sending")
	return cmd
}
