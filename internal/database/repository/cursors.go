package repository

import (
	"context"
	"database/sql"
)

// SyncCursorRepo persists the aggregation feed's resumable position, one row
// per access credential. TokenRef is a fingerprint of the credential, never
// the credential itself.
type SyncCursorRepo struct {
	q DBTX
}

func NewSyncCursorRepo(db *sql.DB) *SyncCursorRepo { return &SyncCursorRepo{q: db} }

// WithTx returns a copy bound to tx.
func (r *SyncCursorRepo) WithTx(tx *sql.Tx) *SyncCursorRepo { return &SyncCursorRepo{q: tx} }

func (r *SyncCursorRepo) Get(ctx context.Context, tokenRef string) (*SyncCursor, error) {
	row := r.q.QueryRowContext(ctx, `SELECT token_ref, cursor, last_synced_at FROM sync_cursors WHERE token_ref = ?`, tokenRef)
	var c SyncCursor
	if err := row.Scan(&c.TokenRef, &c.Cursor, &c.LastSyncedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Put records the cursor after a successfully applied page.
func (r *SyncCursorRepo) Put(ctx context.Context, c SyncCursor) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO sync_cursors(token_ref, cursor, last_synced_at)
	VALUES (?, ?, ?)
	ON CONFLICT(token_ref) DO UPDATE SET
	 cursor=excluded.cursor,
	 last_synced_at=excluded.last_synced_at;
	`, c.TokenRef, c.Cursor, c.LastSyncedAt)
	return err
}

// Clear drops the cursor, forcing the next sync to start from scratch. Used
// by the explicit "re-sync" action only.
func (r *SyncCursorRepo) Clear(ctx context.Context, tokenRef string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sync_cursors WHERE token_ref = ?`, tokenRef)
	return err
}
