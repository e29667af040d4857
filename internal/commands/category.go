package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jask/envelopes/internal/database/repository"
)

func newCategoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage envelope categories",
	}
	cmd.AddCommand(newCategoryAddCommand())
	cmd.AddCommand(newCategoryRenameCommand())
	cmd.AddCommand(newCategoryDeleteCommand())
	return cmd
}

func newCategoryAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			c := repository.Category{ID: uuid.NewString(), Name: args[0]}
			if err := a.categories.Upsert(ctx, c); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "created category %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
}

func newCategoryRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.taxonomy.RenameCategory(ctx, args[0], args[1]); err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "renamed category to %s\n", args[1])
			return nil
		},
	}
}

func newCategoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category; its envelopes move to Uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.taxonomy.DeleteCategory(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "category deleted")
			return nil
		},
	}
}
