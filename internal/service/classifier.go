package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jask/envelopes/internal/database/repository"
	"github.com/jask/envelopes/internal/ledger"
)

// Classifier assigns envelopes to transactions from the keyword table.
// Matching runs as SQL LIKE inside the store so interactive classification
// and bulk re-apply share one set of semantics.
type Classifier struct {
	Keywords     *repository.KeywordRepo
	Accounts     *repository.AccountRepo
	Transactions *repository.TransactionRepo
	Ledger       *ledger.Engine
}

// Classify returns the envelope for (account, description), or nil when no
// keyword matches. Precedence: account-scoped over "All", longest pattern,
// then pattern order.
func (c *Classifier) Classify(ctx context.Context, accountID, description string) (*string, error) {
	accountName := ""
	if accountID != "" {
		acct, err := c.Accounts.Get(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}
		if acct != nil {
			accountName = acct.DisplayName
		}
	}
	k, err := c.Keywords.MatchBest(ctx, accountName, description)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if k == nil {
		return nil, nil
	}
	env := k.EnvelopeID
	return &env, nil
}

// SaveKeyword stores a keyword, replacing any existing keyword with the same
// pattern.
func (c *Classifier) SaveKeyword(ctx context.Context, envelopeID, accountScope, pattern string) (repository.Keyword, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return repository.Keyword{}, fmt.Errorf("keyword pattern required")
	}
	if strings.TrimSpace(accountScope) == "" {
		accountScope = repository.ScopeAll
	}
	k := repository.Keyword{
		ID:           uuid.NewString(),
		EnvelopeID:   envelopeID,
		AccountScope: accountScope,
		MatchPattern: pattern,
	}
	if err := c.Keywords.Save(ctx, k); err != nil {
		return repository.Keyword{}, fmt.Errorf("save keyword: %w", err)
	}
	return k, nil
}

// ApplyKeyword reassigns every transaction matching the keyword to its
// envelope. With force false only unassigned transactions move; an existing
// classification is never overwritten unless forced. Returns the number of
// rows reassigned. Each reassignment routes through the ledger engine so
// balances move with the rows.
func (c *Classifier) ApplyKeyword(ctx context.Context, keywordID string, force bool) (int, error) {
	k, err := c.Keywords.Get(ctx, keywordID)
	if err != nil {
		return 0, fmt.Errorf("apply keyword: %w", err)
	}
	if k == nil {
		return 0, fmt.Errorf("apply keyword: keyword %s not found", keywordID)
	}
	matches, err := c.Transactions.ListMatchingKeyword(ctx, *k, !force)
	if err != nil {
		return 0, fmt.Errorf("apply keyword: %w", err)
	}
	applied := 0
	for _, t := range matches {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if t.EnvelopeID != nil && *t.EnvelopeID == k.EnvelopeID {
			continue
		}
		env := k.EnvelopeID
		if err := c.Ledger.Reassign(ctx, t.ID, &env); err != nil {
			return applied, fmt.Errorf("apply keyword to %s: %w", t.ID, err)
		}
		applied++
	}
	return applied, nil
}
