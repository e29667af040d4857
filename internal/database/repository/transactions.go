package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	AccountID      string
	EnvelopeID     string
	Unassigned     bool // envelope_id IS NULL
	Month          time.Time
	Search         string
	IncludeHidden  bool
	IncludeBudgets bool
}

// TransactionRepo handles transaction rows. Row mutations that carry a
// balance effect are driven by the ledger engine; nothing here touches
// envelope balances.
type TransactionRepo struct {
	q DBTX
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{q: db} }

// WithTx returns a copy bound to tx.
func (r *TransactionRepo) WithTx(tx *sql.Tx) *TransactionRepo { return &TransactionRepo{q: tx} }

const txColumns = `id, envelope_id, account_id, amount, date, description, external_ref,
 is_budget, original_tx_id, is_duplicate, is_split, is_visible, created_at, updated_at`

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO transactions(`+txColumns+`)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, t.ID, t.EnvelopeID, t.AccountID, t.AmountCents, t.Date, t.Description, t.ExternalRef,
		t.IsBudget, t.OriginalTxID, t.IsDuplicate, t.IsSplit, t.IsVisible)
	return err
}

func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

func (r *TransactionRepo) UpdateEnvelope(ctx context.Context, id string, envelopeID *string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE transactions SET envelope_id = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, envelopeID, id)
	return err
}

func (r *TransactionRepo) UpdateAmount(ctx context.Context, id string, amountCents int64) error {
	_, err := r.q.ExecContext(ctx, `UPDATE transactions SET amount = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, amountCents, id)
	return err
}

func (r *TransactionRepo) SetDuplicate(ctx context.Context, id string, dup bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE transactions SET is_duplicate = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, dup, id)
	return err
}

func (r *TransactionRepo) SetVisible(ctx context.Context, id string, visible bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE transactions SET is_visible = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, visible, id)
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// GetByExternalRef returns the non-budget row carrying an external reference
// for one account, or nil. Used by the sync coordinator's modify/remove paths.
func (r *TransactionRepo) GetByExternalRef(ctx context.Context, accountID, externalRef string) (*Transaction, error) {
	row := r.q.QueryRowContext(ctx, `
	SELECT `+txColumns+` FROM transactions
	WHERE account_id = ? AND external_ref = ? AND is_budget = 0
	LIMIT 1;`, accountID, externalRef)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ExistsByRef reports whether another transaction has the same account,
// external reference, and calendar day.
func (r *TransactionRepo) ExistsByRef(ctx context.Context, accountID, externalRef string, day time.Time) (bool, error) {
	start, end := dayRange(day)
	row := r.q.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM transactions
	WHERE account_id = ? AND external_ref = ? AND date >= ? AND date < ? AND is_budget = 0;
	`, accountID, externalRef, start, end)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExistsByFingerprint reports whether another transaction has the same
// account, amount, description, and calendar day.
func (r *TransactionRepo) ExistsByFingerprint(ctx context.Context, accountID string, amountCents int64, description string, day time.Time) (bool, error) {
	start, end := dayRange(day)
	row := r.q.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM transactions
	WHERE account_id = ? AND amount = ? AND description = ? AND date >= ? AND date < ? AND is_budget = 0;
	`, accountID, amountCents, description, start, end)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetBudgetRow returns the budget allocation row for (envelope, period), or
// nil. Period must already be normalized to the first of the month.
func (r *TransactionRepo) GetBudgetRow(ctx context.Context, envelopeID string, period time.Time) (*Transaction, error) {
	row := r.q.QueryRowContext(ctx, `
	SELECT `+txColumns+` FROM transactions
	WHERE envelope_id = ? AND is_budget = 1 AND date = ?;
	`, envelopeID, period)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListMatchingKeyword returns non-budget rows whose description contains the
// keyword pattern (case-sensitive) within its account scope. unassignedOnly
// restricts to rows with no envelope.
func (r *TransactionRepo) ListMatchingKeyword(ctx context.Context, k Keyword, unassignedOnly bool) ([]Transaction, error) {
	where := []string{"instr(description, ?) > 0", "is_budget = 0"}
	args := []any{k.MatchPattern}
	if k.AccountScope != ScopeAll {
		where = append(where, "account_id IN (SELECT id FROM accounts WHERE display_name = ?)")
		args = append(args, k.AccountScope)
	}
	if unassignedOnly {
		where = append(where, "envelope_id IS NULL")
	}
	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date, id`
	return r.list(ctx, query, args...)
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []any

	if !f.IncludeBudgets {
		where = append(where, "is_budget = 0")
	}
	if !f.IncludeHidden {
		where = append(where, "is_visible = 1")
	}
	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.EnvelopeID != "" {
		where = append(where, "envelope_id = ?")
		args = append(args, f.EnvelopeID)
	}
	if f.Unassigned {
		where = append(where, "envelope_id IS NULL")
	}
	if !f.Month.IsZero() {
		start := time.Date(f.Month.Year(), f.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		where = append(where, "date >= ? AND date < ?")
		args = append(args, start, end)
	}
	if f.Search != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := `SELECT ` + txColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"
	return r.list(ctx, query, args...)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func dayRange(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var envelope, account, external, original sql.NullString
	if err := row.Scan(&t.ID, &envelope, &account, &t.AmountCents, &t.Date, &t.Description,
		&external, &t.IsBudget, &original, &t.IsDuplicate, &t.IsSplit, &t.IsVisible,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if envelope.Valid {
		t.EnvelopeID = &envelope.String
	}
	if account.Valid {
		t.AccountID = &account.String
	}
	if external.Valid {
		t.ExternalRef = &external.String
	}
	if original.Valid {
		t.OriginalTxID = &original.String
	}
	return t, nil
}
