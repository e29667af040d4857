package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jask/envelopes/internal/database/repository"
)

// NewAccountName is the placeholder name given to resolver-created accounts.
const NewAccountName = "New Account"

// LookupKey identifies an external account by exactly one of its keys.
type LookupKey struct {
	ExternalRef string // free-text reference number from a statement
	FeedID      string // aggregation-provider account id
}

// Resolver maps external account identifiers to internal accounts, creating
// a placeholder on first sight. One Resolver is created per import or sync
// run and discarded with it; the cache must never outlive the run.
type Resolver struct {
	accounts *repository.AccountRepo
	cache    map[string]repository.Account
}

func NewResolver(accounts *repository.AccountRepo) *Resolver {
	return &Resolver{accounts: accounts, cache: make(map[string]repository.Account)}
}

// Resolve returns the account for key, creating one when absent. Idempotent
// within the run: repeated lookups of the same key hit the cache and cannot
// create duplicate accounts.
func (r *Resolver) Resolve(ctx context.Context, key LookupKey) (repository.Account, error) {
	ref := strings.TrimSpace(key.ExternalRef)
	feedID := strings.TrimSpace(key.FeedID)
	if (ref == "") == (feedID == "") {
		return repository.Account{}, errors.New("resolve: exactly one of external ref and feed id required")
	}

	cacheKey := "ref:" + ref
	if feedID != "" {
		cacheKey = "feed:" + feedID
	}
	if acct, ok := r.cache[cacheKey]; ok {
		return acct, nil
	}

	var found *repository.Account
	var err error
	if ref != "" {
		found, err = r.accounts.GetByExternalRef(ctx, ref)
	} else {
		found, err = r.accounts.GetByFeedID(ctx, feedID)
	}
	if err != nil {
		return repository.Account{}, fmt.Errorf("resolve account: %w", err)
	}
	if found != nil {
		r.cache[cacheKey] = *found
		return *found, nil
	}

	acct := repository.Account{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("acct:"+cacheKey)).String(),
		DisplayName: NewAccountName,
		Active:      true,
	}
	if ref != "" {
		acct.ExternalRef = &ref
	} else {
		acct.ExternalFeedID = &feedID
	}
	if err := r.accounts.Insert(ctx, acct); err != nil {
		return repository.Account{}, fmt.Errorf("create account: %w", err)
	}
	r.cache[cacheKey] = acct
	return acct, nil
}
