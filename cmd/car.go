package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
)

func newCarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "car",
		Short: "Manage the rental fleet",
	}
	cmd.AddCommand(newCarAddCmd())
	cmd.AddCommand(newCarWithdrawCmd())
	cmd.AddCommand(newCarListCmd())
	return cmd
}

func newCarAddCmd() *cobra.Command {
	var c car.Car

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a bookable car",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.svc.AddCar(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created car %s (%s)\n", created.ID, created.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&c.Make, "make", "", "manufacturer")
	cmd.Flags().StringVar(&c.Model, "model", "", "model")
	cmd.Flags().IntVar(&c.HP, "hp", 0, "horsepower")
	cmd.Flags().IntVar(&c.PriceForLap, "price-for-lap", 0, "price per lap")
	_ = cmd.MarkFlagRequired("make")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newCarWithdrawCmd() *cobra.Command {
	var restore bool

	cmd := &cobra.Command{
		Use:   "withdraw CAR_ID",
		Short: "Take a car out of the bookable fleet (or back in with --restore)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid car id %q: %w", args[0], err)
			}
			a, err := bootstrap(cmd.Context(), bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.SetCarWithdrawn(cmd.Context(), id, !restore); err != nil {
				return err
			}
			state := "withdrawn"
			if restore {
				state = "bookable"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "car %s is now %s\n", id, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&restore, "restore", false, "make the car bookable again")
	return cmd
}

func newCarListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all cars",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			cars, err := a.svc.Cars(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCAR\tHP\tPRICE/LAP\tWITHDRAWN")
			for _, c := range cars {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\n", c.ID, c.Name(), c.HP, c.PriceForLap, c.Withdrawn)
			}
			return tw.Flush()
		},
	}
}
