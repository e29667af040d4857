// Package feed talks to the transaction aggregation provider. The Provider
// interface is what services consume; the HTTP client is one implementation.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one record from the remote feed. Amount follows the feed's
// convention: positive means money leaving the account. Callers invert the
// sign before handing it to the ledger.
type Transaction struct {
	ExternalID    string          `json:"transaction_id"`
	AccountFeedID string          `json:"account_id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"name"`
	Pending       bool            `json:"pending"`
}

// Removal identifies a transaction the feed has retracted.
type Removal struct {
	ExternalID    string `json:"transaction_id"`
	AccountFeedID string `json:"account_id"`
}

// SyncPage is one page of the cursor-driven delta feed.
type SyncPage struct {
	Added      []Transaction `json:"added"`
	Modified   []Transaction `json:"modified"`
	Removed    []Removal     `json:"removed"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor"`
}

// RangePage is one page of a forced full-range fetch.
type RangePage struct {
	Records []Transaction `json:"transactions"`
	Total   int           `json:"total_transactions"`
}

// Provider defines the aggregation calls used by the sync coordinator.
type Provider interface {
	// ExchangePublicToken trades a short-lived public token for a
	// durable access token.
	ExchangePublicToken(ctx context.Context, publicToken string) (string, error)
	// Sync fetches the next delta page. An empty cursor means "from the
	// beginning".
	Sync(ctx context.Context, accessToken, cursor string) (*SyncPage, error)
	// GetRange fetches transactions in [start, end] by offset.
	GetRange(ctx context.Context, accessToken string, start, end time.Time, offset, count int) (*RangePage, error)
}

// RemoteError is a structured failure from the aggregation API. The payload
// is preserved verbatim so the caller can decide whether to retry.
type RemoteError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"error_message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("feed: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}
