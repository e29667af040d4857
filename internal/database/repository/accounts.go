package repository

import (
	"context"
	"database/sql"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	q DBTX
}

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{q: db} }

// WithTx returns a copy bound to tx.
func (r *AccountRepo) WithTx(tx *sql.Tx) *AccountRepo { return &AccountRepo{q: tx} }

func (r *AccountRepo) Insert(ctx context.Context, a Account) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO accounts(id, display_name, external_ref, external_feed_id, active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, a.ID, a.DisplayName, a.ExternalRef, a.ExternalFeedID, a.Active)
	return err
}

func (r *AccountRepo) Rename(ctx context.Context, id, displayName string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts SET display_name = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, displayName, id)
	return err
}

// SetActive soft-hides an account from pickers; rows are never deleted.
func (r *AccountRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts SET active = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, active, id)
	return err
}

func (r *AccountRepo) Get(ctx context.Context, id string) (*Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, display_name, external_ref, external_feed_id, active, created_at, updated_at FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetByExternalRef looks up an account by statement reference number.
func (r *AccountRepo) GetByExternalRef(ctx context.Context, ref string) (*Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, display_name, external_ref, external_feed_id, active, created_at, updated_at FROM accounts WHERE external_ref = ?`, ref)
	return scanAccount(row)
}

// GetByFeedID looks up an account by aggregation-provider account id.
func (r *AccountRepo) GetByFeedID(ctx context.Context, feedID string) (*Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, display_name, external_ref, external_feed_id, active, created_at, updated_at FROM accounts WHERE external_feed_id = ?`, feedID)
	return scanAccount(row)
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, display_name, external_ref, external_feed_id, active, created_at, updated_at FROM accounts ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		var ref, feed sql.NullString
		if err := rows.Scan(&a.ID, &a.DisplayName, &ref, &feed, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if ref.Valid {
			a.ExternalRef = &ref.String
		}
		if feed.Valid {
			a.ExternalFeedID = &feed.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	var ref, feed sql.NullString
	if err := row.Scan(&a.ID, &a.DisplayName, &ref, &feed, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if ref.Valid {
		a.ExternalRef = &ref.String
	}
	if feed.Valid {
		a.ExternalFeedID = &feed.String
	}
	return &a, nil
}
