package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/envelopes/internal/ledger"
)

func newTxCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Edit individual transactions",
	}
	cmd.AddCommand(newTxAssignCommand())
	cmd.AddCommand(newTxSplitCommand())
	cmd.AddCommand(newTxHideCommand())
	cmd.AddCommand(newTxDupCommand())
	return cmd
}

func newTxAssignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <tx-id> <envelope|->",
		Short: "Assign a transaction to an envelope ('-' unassigns)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var envID *string
			if args[1] != "-" {
				env, err := a.resolveEnvelope(ctx, args[1])
				if err != nil {
					return err
				}
				envID = &env.ID
			}
			if err := a.ledger.Reassign(ctx, args[0], envID); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "reassigned %s\n", args[0])
			return nil
		},
	}
}

func newTxSplitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "split <tx-id> <amount:envelope>...",
		Short: "Split a transaction into parts; parts must sum to the original",
		Long: `Split a transaction into parts, e.g.:

  envelopes tx split 1a2b -30.00:Groceries -12.50:Eating-Out

Each part is amount:envelope. Parts must sum to the original amount.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			orig, err := a.transactions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if orig == nil {
				return fmt.Errorf("transaction %s not found", args[0])
			}

			var children []ledger.SplitChild
			for _, part := range args[1:] {
				amountStr, envName, ok := strings.Cut(part, ":")
				if !ok {
					return fmt.Errorf("invalid part %q (want amount:envelope)", part)
				}
				cents, err := parseCents(amountStr)
				if err != nil {
					return err
				}
				env, err := a.resolveEnvelope(ctx, envName)
				if err != nil {
					return err
				}
				children = append(children, ledger.SplitChild{
					AmountCents: cents,
					Date:        orig.Date,
					Description: orig.Description,
					EnvelopeID:  &env.ID,
				})
			}
			if err := a.ledger.Split(ctx, orig.ID, children); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "split %s into %d parts\n", orig.ID, len(children))
			return nil
		},
	}
}

func newTxHideCommand() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "hide <tx-id>",
		Short: "Hide a transaction from balances (--undo to restore)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.ledger.SetVisible(ctx, args[0], show); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "visibility updated for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "undo", false, "make the transaction visible again")
	return cmd
}

func newTxDupCommand() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "dup <tx-id>",
		Short: "Mark a transaction as a duplicate (--undo to unmark)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.ledger.SetDuplicate(ctx, args[0], !undo); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "duplicate flag updated for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "clear the duplicate flag")
	return cmd
}
