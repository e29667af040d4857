package repository

import "time"

// Account represents an account row. Resolver-created accounts start with
// DisplayName "New Account" and one of the external keys populated.
type Account struct {
	ID             string
	DisplayName    string
	ExternalRef    *string
	ExternalFeedID *string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Category represents a category row. "Uncategorized" and "Income" are
// reserved and must never be renamed or deleted.
type Category struct {
	ID   string
	Name string
}

// Envelope represents an envelope row. BalanceCents is derived-but-stored:
// it equals the sum of counted transaction amounts plus budget rows, and is
// only ever adjusted by the ledger engine.
type Envelope struct {
	ID           string
	CategoryID   string
	Name         string
	BalanceCents int64
	Active       bool
}

// Keyword maps a description pattern to an envelope. AccountScope is either
// ScopeAll or an account display name.
type Keyword struct {
	ID           string
	EnvelopeID   string
	AccountScope string
	MatchPattern string
}

// ScopeAll marks a keyword that applies regardless of account.
const ScopeAll = "All"

// Transaction represents a ledger row. A budget allocation is a Transaction
// with IsBudget set, one per (envelope, month), and no account.
type Transaction struct {
	ID           string
	EnvelopeID   *string
	AccountID    *string
	AmountCents  int64
	Date         time.Time
	Description  string
	ExternalRef  *string
	IsBudget     bool
	OriginalTxID *string
	IsDuplicate  bool
	IsSplit      bool
	IsVisible    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Counted reports whether the transaction's amount contributes to its
// envelope's balance.
func (t Transaction) Counted() bool {
	return t.IsVisible && !t.IsDuplicate
}

// SyncCursor is the resumable position of the aggregation delta feed for one
// access credential.
type SyncCursor struct {
	TokenRef     string
	Cursor       string
	LastSyncedAt time.Time
}
