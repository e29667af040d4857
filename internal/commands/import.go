package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	var accountRef string

	cmd := &cobra.Command{
		Use:   "import <files...>",
		Short: "Import bank statement files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			failed := 0
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					warnPrint(cmd.ErrOrStderr(), "skip %s: %v\n", path, err)
					failed++
					continue
				}
				tick := progressPrinter(cmd.OutOrStdout(), filepath.Base(path))
				res, err := a.importer.ImportFile(ctx, f, filepath.Base(path), accountRef,
					func(done, total int) { tick(done * 100 / total) })
				f.Close()
				if err != nil {
					// one bad file does not abort the batch
					warnPrint(cmd.ErrOrStderr(), "failed %s: %v\n", path, err)
					failed++
					continue
				}
				successPrint(cmd.OutOrStdout(), "%s: %d imported, %d duplicates, %d skipped\n",
					filepath.Base(path), res.Imported, res.Duplicates, res.Skipped)
				for _, e := range res.Errors {
					warnPrint(cmd.ErrOrStderr(), "  %v\n", e)
				}
			}
			if failed == len(args) {
				return fmt.Errorf("no files imported")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountRef, "account", "", "account reference for records without one")
	return cmd
}
