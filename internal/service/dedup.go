package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/jask/envelopes/internal/database/repository"
)

// Detector decides whether an incoming statement record is a duplicate of a
// transaction already in the ledger. Records carrying a bank reference are
// matched on (account, reference, calendar day); records without one fall
// back to a fingerprint of (account, amount, description, calendar day).
type Detector struct {
	Transactions *repository.TransactionRepo
}

// IsDuplicate reports whether a row matching the record already exists.
// Splits and budget rows never participate in matching.
func (d *Detector) IsDuplicate(ctx context.Context, accountID string, date time.Time, amountCents int64, description, externalRef string) (bool, error) {
	if externalRef != "" {
		exists, err := d.Transactions.ExistsByRef(ctx, accountID, externalRef, date)
		if err != nil {
			return false, fmt.Errorf("duplicate check: %w", err)
		}
		return exists, nil
	}
	exists, err := d.Transactions.ExistsByFingerprint(ctx, accountID, amountCents, description, date)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return exists, nil
}

// Suggestion pairs a near-duplicate candidate with its description
// similarity, for manual review.
type Suggestion struct {
	Transaction repository.Transaction
	Similarity  float64
}

const (
	suggestMinSimilarity = 0.85
	suggestMaxDays       = 3
)

// Suggest returns transactions on the same account with the same amount,
// dated within three days, whose descriptions are nearly the same. These are
// not marked as duplicates; they are candidates for the user to resolve.
func (d *Detector) Suggest(ctx context.Context, accountID string, date time.Time, amountCents int64, description string) ([]Suggestion, error) {
	candidates, err := d.Transactions.List(ctx, repository.TransactionFilters{
		AccountID: accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest duplicates: %w", err)
	}
	var out []Suggestion
	for _, t := range candidates {
		if t.AmountCents != amountCents || t.IsBudget {
			continue
		}
		days := t.Date.Sub(date).Hours() / 24
		if days < 0 {
			days = -days
		}
		if days > suggestMaxDays {
			continue
		}
		sim := descriptionSimilarity(description, t.Description)
		if sim < suggestMinSimilarity {
			continue
		}
		out = append(out, Suggestion{Transaction: t, Similarity: sim})
	}
	return out, nil
}

func descriptionSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
