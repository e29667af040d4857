package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/envelopes/internal/database/repository"
	"github.com/jask/envelopes/internal/feed"
	"github.com/jask/envelopes/internal/ledger"
)

// SyncCoordinator drives the remote delta feed into the ledger. Cursors are
// stored per access-token fingerprint; the raw token never touches the store.
type SyncCoordinator struct {
	Provider     feed.Provider
	Cursors      *repository.SyncCursorRepo
	Accounts     *repository.AccountRepo
	Transactions *repository.TransactionRepo
	Classifier   *Classifier
	Detector     *Detector
	Ledger       *ledger.Engine
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Added    int
	Modified int
	Removed  int
	Pages    int
}

const rangePageSize = 100

// tokenRef fingerprints an access token for cursor storage.
func tokenRef(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:16])
}

// progressEmitter keeps reported progress monotonic in [0, 100].
type progressEmitter struct {
	fn   func(int)
	last int
}

func (p *progressEmitter) emit(pct int) {
	if p.fn == nil {
		return
	}
	if pct > 100 {
		pct = 100
	}
	if pct > p.last {
		p.last = pct
		p.fn(pct)
	}
}

// Sync pulls and applies delta pages until the feed reports no more. The
// cursor is persisted only after a page has fully applied, so a failure
// mid-page leaves the stored cursor pointing at the failed page and a retry
// re-processes it. Already-applied adds are caught by duplicate detection on
// retry; removes of absent rows are a no-op.
func (s *SyncCoordinator) Sync(ctx context.Context, accessToken string, progress func(int)) (*SyncResult, error) {
	ref := tokenRef(accessToken)
	cursor := ""
	if c, err := s.Cursors.Get(ctx, ref); err != nil {
		return nil, fmt.Errorf("sync: load cursor: %w", err)
	} else if c != nil {
		cursor = c.Cursor
	}

	emitter := &progressEmitter{fn: progress}
	resolver := NewResolver(s.Accounts)
	result := &SyncResult{}
	applied := 0

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := s.Provider.Sync(ctx, accessToken, cursor)
		if err != nil {
			return result, fmt.Errorf("sync: %w", err)
		}
		result.Pages++

		pageTotal := len(page.Added) + len(page.Removed) + len(page.Modified)
		// Progress treats the current page as the last until a further
		// page arrives; the emitter clamps out any regressions.
		emitDone := func(done int) {
			total := applied + pageTotal
			if total > 0 {
				pct := (applied + done) * 100 / total
				if page.HasMore && pct > 99 {
					pct = 99
				}
				emitter.emit(pct)
			}
		}

		done := 0
		for _, t := range page.Added {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			inserted, err := s.applyAdd(ctx, resolver, t)
			if err != nil {
				return result, fmt.Errorf("sync: apply add %s: %w", t.ExternalID, err)
			}
			if inserted {
				result.Added++
			}
			done++
			emitDone(done)
		}
		for _, r := range page.Removed {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			removed, err := s.applyRemove(ctx, resolver, r.AccountFeedID, r.ExternalID)
			if err != nil {
				return result, fmt.Errorf("sync: apply remove %s: %w", r.ExternalID, err)
			}
			if removed {
				result.Removed++
			}
			done++
			emitDone(done)
		}
		for _, t := range page.Modified {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := s.applyModify(ctx, resolver, t); err != nil {
				return result, fmt.Errorf("sync: apply modify %s: %w", t.ExternalID, err)
			}
			result.Modified++
			done++
			emitDone(done)
		}
		applied += pageTotal

		cursor = page.NextCursor
		if err := s.Cursors.Put(ctx, repository.SyncCursor{
			TokenRef:     ref,
			Cursor:       cursor,
			LastSyncedAt: time.Now().UTC(),
		}); err != nil {
			return result, fmt.Errorf("sync: persist cursor: %w", err)
		}
		if !page.HasMore {
			break
		}
	}
	emitter.emit(100)
	return result, nil
}

// SyncRange force-fetches a date window, bypassing the cursor, and applies
// every record through the normal insert path. Rows already present are
// skipped by duplicate detection, so re-pulling a window is safe.
func (s *SyncCoordinator) SyncRange(ctx context.Context, accessToken string, start, end time.Time, progress func(int)) (*SyncResult, error) {
	emitter := &progressEmitter{fn: progress}
	resolver := NewResolver(s.Accounts)
	result := &SyncResult{}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := s.Provider.GetRange(ctx, accessToken, start, end, offset, rangePageSize)
		if err != nil {
			return result, fmt.Errorf("sync range: %w", err)
		}
		result.Pages++
		for _, t := range page.Records {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			inserted, err := s.applyAdd(ctx, resolver, t)
			if err != nil {
				return result, fmt.Errorf("sync range: apply %s: %w", t.ExternalID, err)
			}
			if inserted {
				result.Added++
			}
			offset++
			if page.Total > 0 {
				emitter.emit(offset * 100 / page.Total)
			}
		}
		if offset >= page.Total || len(page.Records) == 0 {
			break
		}
	}
	emitter.emit(100)
	return result, nil
}

// applyAdd inserts one feed transaction. Returns false when the row is
// already present (retry of an applied page) or still pending. The feed
// reports outflows as positive, so the sign is inverted before insert.
func (s *SyncCoordinator) applyAdd(ctx context.Context, resolver *Resolver, t feed.Transaction) (bool, error) {
	if t.Pending {
		return false, nil
	}
	acct, err := resolver.Resolve(ctx, LookupKey{FeedID: t.AccountFeedID})
	if err != nil {
		return false, err
	}
	amountCents := t.Amount.Neg().Shift(2).Round(0).IntPart()
	date := t.Date.UTC()

	dup, err := s.Detector.IsDuplicate(ctx, acct.ID, date, amountCents, t.Description, t.ExternalID)
	if err != nil {
		return false, err
	}
	if dup {
		return false, nil
	}

	envelopeID, err := s.Classifier.Classify(ctx, acct.ID, t.Description)
	if err != nil {
		return false, err
	}
	ref := t.ExternalID
	row := repository.Transaction{
		ID:          uuid.NewString(),
		EnvelopeID:  envelopeID,
		AccountID:   &acct.ID,
		AmountCents: amountCents,
		Date:        date,
		Description: t.Description,
		ExternalRef: &ref,
		IsVisible:   true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.Ledger.Insert(ctx, row); err != nil {
		return false, err
	}
	return true, nil
}

// applyRemove deletes the row matching the feed id, reversing its balance
// effect. Absent rows are a no-op.
func (s *SyncCoordinator) applyRemove(ctx context.Context, resolver *Resolver, accountFeedID, externalID string) (bool, error) {
	acct, err := resolver.Resolve(ctx, LookupKey{FeedID: accountFeedID})
	if err != nil {
		return false, err
	}
	existing, err := s.Transactions.GetByExternalRef(ctx, acct.ID, externalID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if err := s.Ledger.Delete(ctx, existing.ID); err != nil {
		return false, err
	}
	return true, nil
}

// applyModify is remove-then-reinsert, never an in-place update, so the
// balance math stays inside the two engine operations.
func (s *SyncCoordinator) applyModify(ctx context.Context, resolver *Resolver, t feed.Transaction) error {
	if _, err := s.applyRemove(ctx, resolver, t.AccountFeedID, t.ExternalID); err != nil {
		return err
	}
	_, err := s.applyAdd(ctx, resolver, t)
	return err
}
