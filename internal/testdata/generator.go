// Package testdata builds randomized ledger fixtures for property tests.
package testdata

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/jask/envelopes/internal/database"
	"github.com/jask/envelopes/internal/database/repository"
)

// Fixture is a seeded ledger: one account and a handful of envelopes.
type Fixture struct {
	AccountID   string
	EnvelopeIDs []string
}

// SeedLedger creates the reserved categories, one account and n envelopes.
func SeedLedger(ctx context.Context, db *sql.DB, n int) (*Fixture, error) {
	if err := database.SeedDefaults(ctx, db); err != nil {
		return nil, err
	}

	accounts := repository.NewAccountRepo(db)
	acct := repository.Account{
		ID:          uuid.NewString(),
		DisplayName: "Sample Checking",
		Active:      true,
	}
	if err := accounts.Insert(ctx, acct); err != nil {
		return nil, err
	}

	envelopes := repository.NewEnvelopeRepo(db)
	catID := database.CategoryID(database.CategoryUncategorized)
	f := &Fixture{AccountID: acct.ID}
	for i := 0; i < n; i++ {
		e := repository.Envelope{
			ID:         uuid.NewString(),
			CategoryID: catID,
			Name:       fmt.Sprintf("Envelope %d", i+1),
			Active:     true,
		}
		if err := envelopes.Insert(ctx, e); err != nil {
			return nil, err
		}
		f.EnvelopeIDs = append(f.EnvelopeIDs, e.ID)
	}
	return f, nil
}

var descriptions = []string{
	"UBER EATS* SUSHI",
	"AMAZON.COM*XYZ",
	"WOOLWORTHS METRO",
	"SPOTIFY P21",
	"SALARY ACME PTY LTD",
	"SHELL COLES EXPRESS",
	"DAN MURPHY'S SPOTSWOOD",
}

// Description returns a plausible bank description.
func Description(rng *rand.Rand) string {
	return descriptions[rng.Intn(len(descriptions))]
}

// AmountCents returns a non-zero amount, mostly outflows.
func AmountCents(rng *rand.Rand) int64 {
	cents := int64(rng.Intn(20000) + 1)
	if rng.Intn(5) > 0 {
		return -cents
	}
	return cents
}
