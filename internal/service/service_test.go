package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/envelopes/internal/database"
	"github.com/jask/envelopes/internal/database/repository"
	"github.com/jask/envelopes/internal/ledger"
)

// harness bundles the wired services every test needs.
type harness struct {
	db           *sql.DB
	accounts     *repository.AccountRepo
	envelopes    *repository.EnvelopeRepo
	keywords     *repository.KeywordRepo
	transactions *repository.TransactionRepo
	cursors      *repository.SyncCursorRepo
	engine       *ledger.Engine
	classifier   *Classifier
	detector     *Detector
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDefaults(context.Background(), db))

	h := &harness{db: db}
	h.accounts = repository.NewAccountRepo(db)
	h.envelopes = repository.NewEnvelopeRepo(db)
	h.keywords = repository.NewKeywordRepo(db)
	h.transactions = repository.NewTransactionRepo(db)
	h.cursors = repository.NewSyncCursorRepo(db)
	h.engine = ledger.NewEngine(db)
	h.classifier = &Classifier{
		Keywords:     h.keywords,
		Accounts:     h.accounts,
		Transactions: h.transactions,
		Ledger:       h.engine,
	}
	h.detector = &Detector{Transactions: h.transactions}
	return h
}

func (h *harness) envelope(t *testing.T, name string) repository.Envelope {
	t.Helper()
	e := repository.Envelope{
		ID:         name + "-id",
		CategoryID: database.CategoryID(database.CategoryUncategorized),
		Name:       name,
		Active:     true,
	}
	require.NoError(t, h.envelopes.Insert(context.Background(), e))
	return e
}

func (h *harness) balance(t *testing.T, envelopeID string) int64 {
	t.Helper()
	e, err := h.envelopes.Get(context.Background(), envelopeID)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e.BalanceCents
}
