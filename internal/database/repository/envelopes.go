package repository

import (
	"context"
	"database/sql"
)

// EnvelopeRepo handles envelopes. Balance adjustments live here but are only
// called from the ledger engine inside its transaction boundaries.
type EnvelopeRepo struct {
	q DBTX
}

func NewEnvelopeRepo(db *sql.DB) *EnvelopeRepo { return &EnvelopeRepo{q: db} }

// WithTx returns a copy bound to tx.
func (r *EnvelopeRepo) WithTx(tx *sql.Tx) *EnvelopeRepo { return &EnvelopeRepo{q: tx} }

func (r *EnvelopeRepo) Insert(ctx context.Context, e Envelope) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO envelopes(id, category_id, name, balance, active)
	VALUES (?, ?, ?, ?, ?);
	`, e.ID, e.CategoryID, e.Name, e.BalanceCents, e.Active)
	return err
}

func (r *EnvelopeRepo) Rename(ctx context.Context, id, name string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE envelopes SET name = ? WHERE id = ?`, name, id)
	return err
}

func (r *EnvelopeRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE envelopes SET active = ? WHERE id = ?`, active, id)
	return err
}

// SetCategory moves an envelope to another category.
func (r *EnvelopeRepo) SetCategory(ctx context.Context, id, categoryID string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE envelopes SET category_id = ? WHERE id = ?`, categoryID, id)
	return err
}

// AdjustBalance adds deltaCents to the stored balance. Parameterized on
// purpose: balance arithmetic is never interpolated into SQL text.
func (r *EnvelopeRepo) AdjustBalance(ctx context.Context, id string, deltaCents int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE envelopes SET balance = balance + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *EnvelopeRepo) Get(ctx context.Context, id string) (*Envelope, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, category_id, name, balance, active FROM envelopes WHERE id = ?`, id)
	var e Envelope
	if err := row.Scan(&e.ID, &e.CategoryID, &e.Name, &e.BalanceCents, &e.Active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *EnvelopeRepo) List(ctx context.Context) ([]Envelope, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, category_id, name, balance, active FROM envelopes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Envelope
	for rows.Next() {
		var e Envelope
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Name, &e.BalanceCents, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListByCategory returns envelopes inside one category.
func (r *EnvelopeRepo) ListByCategory(ctx context.Context, categoryID string) ([]Envelope, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, category_id, name, balance, active FROM envelopes WHERE category_id = ? ORDER BY name`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Envelope
	for rows.Next() {
		var e Envelope
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Name, &e.BalanceCents, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountedSum recomputes the invariant sum for one envelope: counted
// transaction amounts plus budget rows. Used by tests and consistency
// checks, never by normal balance maintenance.
func (r *EnvelopeRepo) CountedSum(ctx context.Context, id string) (int64, error) {
	row := r.q.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(amount), 0) FROM transactions
	WHERE envelope_id = ? AND is_visible = 1 AND is_duplicate = 0;
	`, id)
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
