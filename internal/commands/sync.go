package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const feedTokenEnv = "ENVELOPES_FEED_ACCESS_TOKEN"

func feedToken(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv(feedTokenEnv); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("no access token: pass --token or set %s", feedTokenEnv)
}

func newSyncCommand() *cobra.Command {
	var token string
	var rangeDates []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull transactions from the linked feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			tok, err := feedToken(token)
			if err != nil {
				return err
			}
			coord := a.syncCoordinator()
			progress := progressPrinter(cmd.OutOrStdout(), "sync")

			if len(rangeDates) > 0 {
				if len(rangeDates) != 2 {
					return fmt.Errorf("--range needs start and end dates")
				}
				start, err := time.Parse("2006-01-02", rangeDates[0])
				if err != nil {
					return fmt.Errorf("invalid start date: %w", err)
				}
				end, err := time.Parse("2006-01-02", rangeDates[1])
				if err != nil {
					return fmt.Errorf("invalid end date: %w", err)
				}
				res, err := coord.SyncRange(ctx, tok, start, end, progress)
				if err != nil {
					return err
				}
				successPrint(cmd.OutOrStdout(), "range pull: %d added over %d pages\n", res.Added, res.Pages)
				return nil
			}

			res, err := coord.Sync(ctx, tok, progress)
			if err != nil {
				return err
			}
			successPrint(cmd.OutOrStdout(), "sync: %d added, %d modified, %d removed (%d pages)\n",
				res.Added, res.Modified, res.Removed, res.Pages)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "feed access token (defaults to "+feedTokenEnv+")")
	cmd.Flags().StringSliceVar(&rangeDates, "range", nil, "force full-range pull: --range 2024-01-01,2024-03-31")
	return cmd
}

func newLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link <public-token>",
		Short: "Exchange a public token for a feed access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			access, err := a.provider.ExchangePublicToken(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), access)
			warnPrint(cmd.ErrOrStderr(), "store this token in %s; it is not persisted\n", feedTokenEnv)
			return nil
		},
	}
}
