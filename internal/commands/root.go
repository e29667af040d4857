// Package commands wires the CLI onto the service layer. Each command maps
// onto one engine or service call; no business logic lives here.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jask/envelopes/internal/config"
	"github.com/jask/envelopes/internal/database"
	"github.com/jask/envelopes/internal/database/repository"
	"github.com/jask/envelopes/internal/feed"
	"github.com/jask/envelopes/internal/ledger"
	"github.com/jask/envelopes/internal/service"
	"github.com/jask/envelopes/internal/statement"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "envelopes",
		Short: "Envelope budgeting over bank statements and transaction feeds",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newLinkCommand())
	rootCmd.AddCommand(newEnvelopeCommand())
	rootCmd.AddCommand(newBudgetCommand())
	rootCmd.AddCommand(newTxCommand())
	rootCmd.AddCommand(newKeywordCommand())
	rootCmd.AddCommand(newCategoryCommand())

	return rootCmd
}

// app holds the opened store and wired services for one command invocation.
type app struct {
	cfg config.Config
	db  *sql.DB

	accounts     *repository.AccountRepo
	categories   *repository.CategoryRepo
	envelopes    *repository.EnvelopeRepo
	keywords     *repository.KeywordRepo
	transactions *repository.TransactionRepo
	cursors      *repository.SyncCursorRepo

	ledger     *ledger.Engine
	classifier *service.Classifier
	detector   *service.Detector
	importer   *service.Importer
	taxonomy   *service.Taxonomy
	provider   feed.Provider
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := database.CheckVersion(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}

	a := &app{cfg: cfg, db: db}
	a.accounts = repository.NewAccountRepo(db)
	a.categories = repository.NewCategoryRepo(db)
	a.envelopes = repository.NewEnvelopeRepo(db)
	a.keywords = repository.NewKeywordRepo(db)
	a.transactions = repository.NewTransactionRepo(db)
	a.cursors = repository.NewSyncCursorRepo(db)

	a.ledger = ledger.NewEngine(db)
	a.classifier = &service.Classifier{
		Keywords:     a.keywords,
		Accounts:     a.accounts,
		Transactions: a.transactions,
		Ledger:       a.ledger,
	}
	a.detector = &service.Detector{Transactions: a.transactions}

	registry, err := statement.NewRegistry()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("statement parsers: %w", err)
	}
	a.importer = &service.Importer{
		Registry:   registry,
		Accounts:   a.accounts,
		Classifier: a.classifier,
		Detector:   a.detector,
		Ledger:     a.ledger,
	}
	a.taxonomy = &service.Taxonomy{DB: db, Categories: a.categories, Envelopes: a.envelopes}
	a.provider = feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.ClientID, cfg.Feed.Secret())
	return a, nil
}

func (a *app) close() {
	a.db.Close()
}

func (a *app) syncCoordinator() *service.SyncCoordinator {
	return &service.SyncCoordinator{
		Provider:     a.provider,
		Cursors:      a.cursors,
		Accounts:     a.accounts,
		Transactions: a.transactions,
		Classifier:   a.classifier,
		Detector:     a.detector,
		Ledger:       a.ledger,
	}
}

// resolveEnvelope accepts an envelope id or name.
func (a *app) resolveEnvelope(ctx context.Context, idOrName string) (*repository.Envelope, error) {
	if e, err := a.envelopes.Get(ctx, idOrName); err != nil {
		return nil, err
	} else if e != nil {
		return e, nil
	}
	all, err := a.envelopes.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Name, idOrName) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("envelope %q not found", idOrName)
}

// parseCents parses a dollar amount like "42.50" or "-1,234.00" into cents.
func parseCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimPrefix(s, "$")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func formatCents(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

var (
	successPrint = color.New(color.FgGreen).FprintfFunc()
	warnPrint    = color.New(color.FgYellow).FprintfFunc()
)

// progressPrinter renders a ticking percentage on one line.
func progressPrinter(w io.Writer, label string) func(int) {
	c := color.New(color.FgCyan)
	return func(pct int) {
		c.Fprintf(w, "\r%s %3d%%", label, pct)
		if pct >= 100 {
			fmt.Fprintln(w)
		}
	}
}
