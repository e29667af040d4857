package repository

import (
	"context"
	"database/sql"
)

// KeywordRepo stores classification keywords. Matching is delegated to the
// store's LIKE so the classifier and bulk reapply use identical semantics.
type KeywordRepo struct {
	q DBTX
}

func NewKeywordRepo(db *sql.DB) *KeywordRepo { return &KeywordRepo{q: db} }

// WithTx returns a copy bound to tx.
func (r *KeywordRepo) WithTx(tx *sql.Tx) *KeywordRepo { return &KeywordRepo{q: tx} }

// Save inserts a keyword, first deleting any existing keyword with the exact
// same pattern so there is at most one row per pattern.
func (r *KeywordRepo) Save(ctx context.Context, k Keyword) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM keywords WHERE match_pattern = ?`, k.MatchPattern); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO keywords(id, envelope_id, account_scope, match_pattern)
	VALUES (?, ?, ?, ?);
	`, k.ID, k.EnvelopeID, k.AccountScope, k.MatchPattern)
	return err
}

func (r *KeywordRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id)
	return err
}

func (r *KeywordRepo) Get(ctx context.Context, id string) (*Keyword, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, envelope_id, account_scope, match_pattern FROM keywords WHERE id = ?`, id)
	return scanKeyword(row)
}

// MatchBest returns the winning keyword for a description, or nil. Patterns
// match as case-sensitive substrings. Precedence is explicit rather than
// planner-dependent: account-scoped keywords beat "All"-scoped ones, then the
// longest pattern wins, then pattern order.
func (r *KeywordRepo) MatchBest(ctx context.Context, accountName, description string) (*Keyword, error) {
	row := r.q.QueryRowContext(ctx, `
	SELECT id, envelope_id, account_scope, match_pattern FROM keywords
	WHERE instr(?, match_pattern) > 0 AND (account_scope = ? OR account_scope = ?)
	ORDER BY (account_scope != ?) DESC, LENGTH(match_pattern) DESC, match_pattern
	LIMIT 1;
	`, description, ScopeAll, accountName, ScopeAll)
	return scanKeyword(row)
}

func (r *KeywordRepo) List(ctx context.Context) ([]Keyword, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, envelope_id, account_scope, match_pattern FROM keywords ORDER BY match_pattern`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Keyword
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.EnvelopeID, &k.AccountScope, &k.MatchPattern); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func scanKeyword(row *sql.Row) (*Keyword, error) {
	var k Keyword
	if err := row.Scan(&k.ID, &k.EnvelopeID, &k.AccountScope, &k.MatchPattern); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &k, nil
}
