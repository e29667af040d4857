package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jask/envelopes/internal/database"
	"github.com/jask/envelopes/internal/database/repository"
)

func newEnvelopeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "Manage envelopes",
	}
	cmd.AddCommand(newEnvelopeListCommand())
	cmd.AddCommand(newEnvelopeAddCommand())
	cmd.AddCommand(newEnvelopeTransferCommand())
	return cmd
}

func newEnvelopeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List envelopes and balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			envs, err := a.envelopes.List(ctx)
			if err != nil {
				return err
			}
			cats, err := a.categories.List(ctx)
			if err != nil {
				return err
			}
			catName := make(map[string]string, len(cats))
			for _, c := range cats {
				catName[c.ID] = c.Name
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENVELOPE\tCATEGORY\tBALANCE")
			for _, e := range envs {
				if !e.Active {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, catName[e.CategoryID], formatCents(e.BalanceCents))
			}
			return w.Flush()
		},
	}
}

func newEnvelopeAddCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			catID := database.CategoryID(database.CategoryUncategorized)
			if category != "" {
				cats, err := a.categories.List(ctx)
				if err != nil {
					return err
				}
				found := false
				for _, c := range cats {
					if c.Name == category {
						catID = c.ID
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("category %q not found", category)
				}
			}
			e := repository.Envelope{
				ID:         uuid.NewString(),
				CategoryID: catID,
				Name:       args[0],
				Active:     true,
			}
			if err := a.envelopes.Insert(ctx, e); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "created envelope %s (%s)\n", e.Name, e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category name (default Uncategorized)")
	return cmd
}

func newEnvelopeTransferCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from> <to> <amount>",
		Short: "Move budget between envelopes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			from, err := a.resolveEnvelope(ctx, args[0])
			if err != nil {
				return err
			}
			to, err := a.resolveEnvelope(ctx, args[1])
			if err != nil {
				return err
			}
			cents, err := parseCents(args[2])
			if err != nil {
				return err
			}
			if err := a.ledger.Transfer(ctx, from.ID, to.ID, cents); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "moved %s from %s to %s\n", formatCents(cents), from.Name, to.Name)
			return nil
		},
	}
}
