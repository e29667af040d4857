package commands

import (
	"github.com/spf13/cobra"
)

func newKeywordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyword",
		Short: "Manage classification keywords",
	}
	cmd.AddCommand(newKeywordAddCommand())
	cmd.AddCommand(newKeywordApplyCommand())
	return cmd
}

func newKeywordAddCommand() *cobra.Command {
	var account string
	var apply bool
	var force bool

	cmd := &cobra.Command{
		Use:   "add <pattern> <envelope>",
		Short: "Add a keyword mapping descriptions to an envelope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			env, err := a.resolveEnvelope(ctx, args[1])
			if err != nil {
				return err
			}
			k, err := a.classifier.SaveKeyword(ctx, env.ID, account, args[0])
			if err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "keyword %q -> %s (%s)\n", k.MatchPattern, env.Name, k.ID)

			if apply {
				n, err := a.classifier.ApplyKeyword(ctx, k.ID, force)
				if err != nil {
					return err
				}
				successPrint(cmd.OutOrStdout(), "reassigned %d existing transactions\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "restrict to one account by display name (default all)")
	cmd.Flags().BoolVar(&apply, "apply", false, "also apply to existing transactions")
	cmd.Flags().BoolVar(&force, "force", false, "with --apply, overwrite existing assignments")
	return cmd
}

func newKeywordApplyCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "apply <keyword-id>",
		Short: "Apply a keyword to existing transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.classifier.ApplyKeyword(ctx, args[0], force)
			if err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "reassigned %d transactions\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing assignments")
	return cmd
}
