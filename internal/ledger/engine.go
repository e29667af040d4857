// Package ledger is the only writer of transaction rows and envelope
// balances. Every multi-step mutation runs inside one store transaction so
// the balance invariant (balance == sum of counted amounts plus budget rows)
// holds at every commit point.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/envelopes/internal/database"
	"github.com/jask/envelopes/internal/database/repository"
)

var (
	// ErrNotFound is returned when the referenced transaction row is gone.
	ErrNotFound = errors.New("ledger: transaction not found")
	// ErrSplitAmountMismatch is returned when split children do not sum to
	// the original amount.
	ErrSplitAmountMismatch = errors.New("ledger: split children must sum to the original amount")
	// ErrBudgetRow is returned when a spend-row operation is applied to a
	// budget allocation row.
	ErrBudgetRow = errors.New("ledger: operation not valid for budget rows")
)

// Engine applies balance-affecting mutations.
type Engine struct {
	db           *sql.DB
	transactions *repository.TransactionRepo
	envelopes    *repository.EnvelopeRepo
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{
		db:           db,
		transactions: repository.NewTransactionRepo(db),
		envelopes:    repository.NewEnvelopeRepo(db),
	}
}

// SplitChild describes one row of a split.
type SplitChild struct {
	AmountCents int64
	Date        time.Time
	Description string
	EnvelopeID  *string
}

// Insert adds a transaction row and, when the row is counted and assigned,
// credits its envelope. Duplicate imports land with IsDuplicate set and no
// balance effect.
func (e *Engine) Insert(ctx context.Context, t repository.Transaction) error {
	return database.WithTx(e.db, func(tx *sql.Tx) error {
		txRepo := e.transactions.WithTx(tx)
		if err := txRepo.Insert(ctx, t); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if t.EnvelopeID != nil && t.Counted() {
			if err := e.envelopes.WithTx(tx).AdjustBalance(ctx, *t.EnvelopeID, t.AmountCents); err != nil {
				return fmt.Errorf("credit envelope: %w", err)
			}
		}
		return nil
	})
}

// Reassign moves a transaction to another envelope (nil = unassigned). The
// envelope id always changes; balances move only when the row is counted.
func (e *Engine) Reassign(ctx context.Context, txID string, newEnvelopeID *string) error {
	return database.WithTx(e.db, func(tx *sql.Tx) error {
		txRepo := e.transactions.WithTx(tx)
		envRepo := e.envelopes.WithTx(tx)
		t, err := txRepo.Get(ctx, txID)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrNotFound
		}
		if t.IsBudget {
			return ErrBudgetRow
		}
		if t.Counted() {
			if t.EnvelopeID != nil {
				if err := envRepo.AdjustBalance(ctx, *t.EnvelopeID, -t.AmountCents); err != nil {
					return fmt.Errorf("debit old envelope: %w", err)
				}
			}
			if newEnvelopeID != nil {
				if err := envRepo.AdjustBalance(ctx, *newEnvelopeID, t.AmountCents); err != nil {
					return fmt.Errorf("credit new envelope: %w", err)
				}
			}
		}
		return txRepo.UpdateEnvelope(ctx, txID, newEnvelopeID)
	})
}

// Delete removes a transaction row, reversing its balance contribution first
// when counted.
func (e *Engine) Delete(ctx context.Context, txID string) error {
	return database.WithTx(e.db, func(tx *sql.Tx) error {
		return e.deleteInTx(ctx, tx, txID)
	})
}

func (e *Engine) deleteInTx(ctx context.Context, tx *sql.Tx, txID string) error {
	txRepo := e.transactions.WithTx(tx)
	t, err := txRepo.Get(ctx, txID)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrNotFound
	}
	if t.EnvelopeID != nil && t.Counted() {
		if err := e.envelopes.WithTx(tx).AdjustBalance(ctx, *t.EnvelopeID, -t.AmountCents); err != nil {
			return fmt.Errorf("reverse balance: %w", err)
		}
	}
	return txRepo.Delete(ctx, txID)
}

// SetDuplicate flips the duplicate flag. Marking removes the amount from the
// envelope, unmarking re-adds it; flag and adjustment commit together.
// Setting the current state again is a no-op.
func (e *Engine) SetDuplicate(ctx context.Context, txID string, dup bool) error {
	return e.setExclusion(ctx, txID, func(t *repository.Transaction) (bool, func(*repository.TransactionRepo) error) {
		if t.IsDuplicate == dup {
			return false, nil
		}
		t.IsDuplicate = dup
		return true, func(r *repository.TransactionRepo) error {
			return r.SetDuplicate(ctx, txID, dup)
		}
	})
}

// SetVisible flips the visibility flag with the same balance semantics as
// SetDuplicate.
func (e *Engine) SetVisible(ctx context.Context, txID string, visible bool) error {
	return e.setExclusion(ctx, txID, func(t *repository.Transaction) (bool, func(*repository.TransactionRepo) error) {
		if t.IsVisible == visible {
			return false, nil
		}
		t.IsVisible = visible
		return true, func(r *repository.TransactionRepo) error {
			return r.SetVisible(ctx, txID, visible)
		}
	})
}

// setExclusion applies a counted-state flag flip atomically with its balance
// adjustment. mutate updates the in-memory copy and returns the row update.
func (e *Engine) setExclusion(ctx context.Context, txID string, mutate func(*repository.Transaction) (bool, func(*repository.TransactionRepo) error)) error {
	return database.WithTx(e.db, func(tx *sql.Tx) error {
		txRepo := e.transactions.WithTx(tx)
		t, err := txRepo.Get(ctx, txID)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrNotFound
		}
		if t.IsBudget {
			return ErrBudgetRow
		}
		before := t.Counted()
		changed, update := mutate(t)
		if !changed {
			return nil
		}
		after := t.Counted()
		if t.EnvelopeID != nil && before != after {
			delta := t.AmountCents
			if before { // leaving the counted state
				delta = -delta
			}
			if err := e.envelopes.WithTx(tx).AdjustBalance(ctx, *t.EnvelopeID, delta); err != nil {
				return fmt.Errorf("adjust balance: %w", err)
			}
		}
		return update(txRepo)
	})
}

// Split replaces a transaction with children that must sum to its amount.
// Children inherit the original's hidden and duplicate flags so splitting an
// excluded row cannot re-count it. The whole operation commits or rolls back
// as one unit.
func (e *Engine) Split(ctx context.Context, txID string, children []SplitChild) error {
	if len(children) == 0 {
		return fmt.Errorf("ledger: split requires at least one child")
	}
	return database.WithTx(e.db, func(tx *sql.Tx) error {
		txRepo := e.transactions.WithTx(tx)
		envRepo := e.envelopes.WithTx(tx)
		orig, err := txRepo.Get(ctx, txID)
		if err != nil {
			return err
		}
		if orig == nil {
			return ErrNotFound
		}
		if orig.IsBudget {
			return ErrBudgetRow
		}
		var sum int64
		for _, c := range children {
			sum += c.AmountCents
		}
		if sum != orig.AmountCents {
			return fmt.Errorf("%w: children %d, original %d", ErrSplitAmountMismatch, sum, orig.AmountCents)
		}

		// Splitting an already-split row keeps pointing at the root original.
		originalID := orig.ID
		if orig.IsSplit && orig.OriginalTxID != nil {
			originalID = *orig.OriginalTxID
		}

		if err := e.deleteInTx(ctx, tx, orig.ID); err != nil {
			return err
		}
		for _, c := range children {
			child := repository.Transaction{
				ID:           uuid.NewString(),
				EnvelopeID:   c.EnvelopeID,
				AccountID:    orig.AccountID,
				AmountCents:  c.AmountCents,
				Date:         c.Date,
				Description:  c.Description,
				OriginalTxID: &originalID,
				IsSplit:      true,
				IsVisible:    orig.IsVisible,
				IsDuplicate:  orig.IsDuplicate,
			}
			if err := txRepo.Insert(ctx, child); err != nil {
				return fmt.Errorf("insert split child: %w", err)
			}
			if child.EnvelopeID != nil && child.Counted() {
				if err := envRepo.AdjustBalance(ctx, *child.EnvelopeID, child.AmountCents); err != nil {
					return fmt.Errorf("credit child envelope: %w", err)
				}
			}
		}
		return nil
	})
}

// SetBudget inserts or delta-updates the budget allocation row for
// (envelope, month). The balance moves by newAmount-oldAmount, never by the
// full new amount twice.
func (e *Engine) SetBudget(ctx context.Context, envelopeID string, period time.Time, amountCents int64) error {
	period = time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC)
	return database.WithTx(e.db, func(tx *sql.Tx) error {
		txRepo := e.transactions.WithTx(tx)
		envRepo := e.envelopes.WithTx(tx)
		existing, err := txRepo.GetBudgetRow(ctx, envelopeID, period)
		if err != nil {
			return err
		}
		if existing == nil {
			row := repository.Transaction{
				ID:          uuid.NewString(),
				EnvelopeID:  &envelopeID,
				AmountCents: amountCents,
				Date:        period,
				Description: "Budget " + period.Format("2006-01"),
				IsBudget:    true,
				IsVisible:   true,
			}
			if err := txRepo.Insert(ctx, row); err != nil {
				return fmt.Errorf("insert budget row: %w", err)
			}
			return envRepo.AdjustBalance(ctx, envelopeID, amountCents)
		}
		delta := amountCents - existing.AmountCents
		if err := txRepo.UpdateAmount(ctx, existing.ID, amountCents); err != nil {
			return fmt.Errorf("update budget row: %w", err)
		}
		if delta != 0 {
			return envRepo.AdjustBalance(ctx, envelopeID, delta)
		}
		return nil
	})
}

// Transfer moves amountCents between envelope balances without creating a
// transaction row.
func (e *Engine) Transfer(ctx context.Context, fromEnvelopeID, toEnvelopeID string, amountCents int64) error {
	return database.WithTx(e.db, func(tx *sql.Tx) error {
		envRepo := e.envelopes.WithTx(tx)
		if err := envRepo.AdjustBalance(ctx, fromEnvelopeID, -amountCents); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		if err := envRepo.AdjustBalance(ctx, toEnvelopeID, amountCents); err != nil {
			return fmt.Errorf("credit destination: %w", err)
		}
		return nil
	})
}
