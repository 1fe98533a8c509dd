package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep pass and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.RunExpirySweep(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newCalendarSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendar-sync",
		Short: "Create calendar events for confirmed reservations that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.SyncCalendar(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
