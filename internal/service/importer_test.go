package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/envelopes/internal/database/repository"
	"github.com/jask/envelopes/internal/statement"
)

func newImporter(t *testing.T, h *harness) *Importer {
	t.Helper()
	registry, err := statement.NewRegistry()
	require.NoError(t, err)
	return &Importer{
		Registry:   registry,
		Accounts:   h.accounts,
		Classifier: h.classifier,
		Detector:   h.detector,
		Ledger:     h.engine,
	}
}

const anzPayload = `3/02/2026,203.92,PAYMENT THANKYOU 528417
2/02/2026,-20.00,DAN MURPHY'S SPOTSWOOD
1/02/2026,-42.50,COFFEE SHOP MELBOURNE`

func TestImportClassifiesAndCounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	imp := newImporter(t, h)

	env := h.envelope(t, "Eating Out")
	_, err := h.classifier.SaveKeyword(ctx, env.ID, "", "COFFEE SHOP")
	require.NoError(t, err)

	var lastDone, total int
	res, err := imp.ImportFile(ctx, strings.NewReader(anzPayload), "anz-feb.csv", "cheque-1", func(done, n int) {
		require.GreaterOrEqual(t, done, lastDone)
		lastDone, total = done, n
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Imported)
	require.Equal(t, 0, res.Duplicates)
	require.Equal(t, 0, res.Skipped)
	require.Equal(t, 3, lastDone)
	require.Equal(t, 3, total)
	t.Log("first import applied")

	// the keyword matched one record and its amount landed in the envelope
	require.Equal(t, int64(-4250), h.balance(t, env.ID))

	assigned, err := h.transactions.List(ctx, repository.TransactionFilters{EnvelopeID: env.ID})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	require.Equal(t, "COFFEE SHOP MELBOURNE", assigned[0].Description)

	// the fallback account was created once for all records
	accounts, err := h.accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "cheque-1", *accounts[0].ExternalRef)
}

func TestReimportIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	imp := newImporter(t, h)

	env := h.envelope(t, "Groceries")
	_, err := h.classifier.SaveKeyword(ctx, env.ID, "", "DAN MURPHY")
	require.NoError(t, err)

	first, err := imp.ImportFile(ctx, strings.NewReader(anzPayload), "anz.csv", "cheque-1", nil)
	require.NoError(t, err)
	require.Equal(t, 3, first.Imported)
	balanceAfterFirst := h.balance(t, env.ID)

	second, err := imp.ImportFile(ctx, strings.NewReader(anzPayload), "anz.csv", "cheque-1", nil)
	require.NoError(t, err)
	require.Equal(t, 0, second.Imported)
	require.Equal(t, 3, second.Duplicates)
	t.Log("second pass flagged everything")

	// duplicates contribute nothing
	require.Equal(t, balanceAfterFirst, h.balance(t, env.ID))

	all, err := h.transactions.List(ctx, repository.TransactionFilters{})
	require.NoError(t, err)
	dups := 0
	for _, tx := range all {
		if tx.IsDuplicate {
			dups++
		}
	}
	require.Equal(t, 3, dups)
	require.Len(t, all, 6)
}

func TestImportUnknownPayloadFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	imp := newImporter(t, h)

	_, err := imp.ImportFile(context.Background(), strings.NewReader("\x00\x01\x02"), "mystery.bin", "", nil)
	require.ErrorIs(t, err, statement.ErrUnknownDialect)
}

func TestImportCancellation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	imp := newImporter(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := imp.ImportFile(ctx, strings.NewReader(anzPayload), "anz.csv", "cheque-1", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestImportStoreFailureAbortsRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	imp := newImporter(t, h)

	require.NoError(t, h.db.Close())

	res, err := imp.ImportFile(ctx, strings.NewReader(anzPayload), "anz-feb.csv", "cheque-1", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "record 1")
	if res != nil {
		require.Zero(t, res.Imported)
	}
}

func TestImportMissingAccountRefSkipsRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	imp := newImporter(t, h)

	// no per-record account reference and no fallback: every record is a
	// content failure, not a store failure, so the run itself succeeds
	res, err := imp.ImportFile(ctx, strings.NewReader(anzPayload), "anz-feb.csv", "", nil)
	require.NoError(t, err)
	require.Zero(t, res.Imported)
	require.Equal(t, 3, res.Skipped)
	require.Len(t, res.Errors, 3)
}
