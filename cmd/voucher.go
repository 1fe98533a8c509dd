package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newVoucherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voucher",
		Short: "Issue and check vouchers",
	}
	cmd.AddCommand(newVoucherIssueCmd())
	cmd.AddCommand(newVoucherCheckCmd())
	return cmd
}

func newVoucherIssueCmd() *cobra.Command {
	var (
		amount int
		days   int
	)

	c := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new ACTIVE voucher",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.svc.IssueVoucher(cmd.Context(), amount, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tamount=%d\texpires=%s\n", v.Code, v.Amount, v.ExpiresAt.Format(time.DateOnly))
			return nil
		},
	}

	c.Flags().IntVar(&amount, "amount", 0, "voucher value")
	c.Flags().IntVar(&days, "validity-days", 0, "days until the voucher expires (default 180)")
	_ = c.MarkFlagRequired("amount")
	return c
}

func newVoucherCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check CODE",
		Short: "Report whether a voucher can be redeemed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.svc.ValidateVoucher(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (amount=%d, status=%s)\n", v.Code, v.Amount, v.Status)
			return nil
		},
	}
}
