package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBudgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly budget allocations",
	}
	cmd.AddCommand(newBudgetSetCommand())
	return cmd
}

func newBudgetSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <envelope> <month> <amount>",
		Short: "Set an envelope's budget for a month (YYYY-MM)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			env, err := a.resolveEnvelope(ctx, args[0])
			if err != nil {
				return err
			}
			period, err := time.Parse("2006-01", args[1])
			if err != nil {
				return fmt.Errorf("invalid month %q (want YYYY-MM): %w", args[1], err)
			}
			cents, err := parseCents(args[2])
			if err != nil {
				return err
			}
			if err := a.ledger.SetBudget(ctx, env.ID, period, cents); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "budget for %s in %s set to %s\n",
				env.Name, args[1], formatCents(cents))
			return nil
		},
	}
}
