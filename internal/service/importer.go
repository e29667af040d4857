package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jask/envelopes/internal/database/repository"
	"github.com/jask/envelopes/internal/ledger"
	"github.com/jask/envelopes/internal/statement"
)

// Importer runs a statement file through parse, account resolution,
// classification, duplicate detection and ledger insertion.
type Importer struct {
	Registry   *statement.Registry
	Accounts   *repository.AccountRepo
	Classifier *Classifier
	Detector   *Detector
	Ledger     *ledger.Engine
}

// errNoAccountRef marks a record that names no account and has no fallback.
// It is a defect in the record, not the store, so the run continues past it.
var errNoAccountRef = errors.New("no account reference and no fallback")

// ImportResult summarizes one import run. Errors holds per-record content
// failures (malformed rows, missing account references); a populated Errors
// slice does not mean the run failed. Store failures abort the run instead.
type ImportResult struct {
	Imported   int
	Duplicates int
	Skipped    int
	Errors     []error
}

// ImportFile parses and applies one statement payload. fallbackAccountRef is
// used for records that do not carry their own account reference. progress,
// when non-nil, is called after each record with records processed so far
// and the total.
func (im *Importer) ImportFile(ctx context.Context, r io.Reader, sourceHint, fallbackAccountRef string, progress func(done, total int)) (*ImportResult, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("import: read payload: %w", err)
	}
	stmt, err := im.Registry.Parse(ctx, sourceHint, payload)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	result := &ImportResult{Skipped: len(stmt.Skipped)}
	result.Errors = append(result.Errors, stmt.Skipped...)

	resolver := NewResolver(im.Accounts)
	total := len(stmt.Records)
	for i, rec := range stmt.Records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		dup, err := im.importRecord(ctx, resolver, rec, fallbackAccountRef)
		switch {
		case errors.Is(err, errNoAccountRef):
			result.Errors = append(result.Errors, fmt.Errorf("record %d (%s): %w", i+1, rec.Description, err))
			result.Skipped++
		case err != nil:
			// Resolution, duplicate-check and ledger failures mean the store
			// is unhealthy; stop rather than degrade every remaining record.
			return result, fmt.Errorf("import: record %d (%s): %w", i+1, rec.Description, err)
		case dup:
			result.Duplicates++
		default:
			result.Imported++
		}
		if progress != nil {
			progress(i+1, total)
		}
	}
	return result, nil
}

func (im *Importer) importRecord(ctx context.Context, resolver *Resolver, rec statement.Record, fallbackRef string) (bool, error) {
	accountRef := rec.AccountRef
	if accountRef == "" {
		accountRef = fallbackRef
	}
	if accountRef == "" {
		return false, errNoAccountRef
	}
	acct, err := resolver.Resolve(ctx, LookupKey{ExternalRef: accountRef})
	if err != nil {
		return false, err
	}

	amountCents := rec.Amount.Shift(2).Round(0).IntPart()
	date := rec.Date.UTC()

	dup, err := im.Detector.IsDuplicate(ctx, acct.ID, date, amountCents, rec.Description, rec.ExternalRef)
	if err != nil {
		return false, err
	}

	var envelopeID *string
	if !dup {
		envelopeID, err = im.Classifier.Classify(ctx, acct.ID, rec.Description)
		if err != nil {
			return false, err
		}
	}

	t := repository.Transaction{
		ID:          uuid.NewString(),
		EnvelopeID:  envelopeID,
		AccountID:   &acct.ID,
		AmountCents: amountCents,
		Date:        date,
		Description: rec.Description,
		IsDuplicate: dup,
		IsVisible:   true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if rec.ExternalRef != "" {
		ref := rec.ExternalRef
		t.ExternalRef = &ref
	}
	if err := im.Ledger.Insert(ctx, t); err != nil {
		return false, err
	}
	return dup, nil
}
