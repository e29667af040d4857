package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jask/envelopes/internal/database/repository"
)

func (h *harness) account(t *testing.T, name string) repository.Account {
	t.Helper()
	a := repository.Account{ID: uuid.NewString(), DisplayName: name, Active: true}
	require.NoError(t, h.accounts.Insert(context.Background(), a))
	return a
}

func (h *harness) rawTx(t *testing.T, accountID string, envelopeID *string, cents int64, desc string) repository.Transaction {
	t.Helper()
	row := repository.Transaction{
		ID:          uuid.NewString(),
		EnvelopeID:  envelopeID,
		AccountID:   &accountID,
		AmountCents: cents,
		Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: desc,
		IsVisible:   true,
	}
	require.NoError(t, h.engine.Insert(context.Background(), row))
	return row
}

func TestClassifyPrecedence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	cheque := h.account(t, "Cheque")
	envAll := h.envelope(t, "Shopping")
	envScoped := h.envelope(t, "Work Expenses")
	envLong := h.envelope(t, "Supermarket")

	_, err := h.classifier.SaveKeyword(ctx, envAll.ID, "", "WOOLWORTHS")
	require.NoError(t, err)
	_, err = h.classifier.SaveKeyword(ctx, envLong.ID, "", "WOOLWORTHS METRO")
	require.NoError(t, err)

	// longest pattern wins among All-scoped
	got, err := h.classifier.Classify(ctx, cheque.ID, "WOOLWORTHS METRO 3015")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, envLong.ID, *got)

	// an account-scoped keyword beats both, even though it is shorter
	_, err = h.classifier.SaveKeyword(ctx, envScoped.ID, "Cheque", "WOOL")
	require.NoError(t, err)
	got, err = h.classifier.Classify(ctx, cheque.ID, "WOOLWORTHS METRO 3015")
	require.NoError(t, err)
	require.Equal(t, envScoped.ID, *got)

	// other accounts do not see the scoped keyword
	savings := h.account(t, "Savings")
	got, err = h.classifier.Classify(ctx, savings.ID, "WOOLWORTHS METRO 3015")
	require.NoError(t, err)
	require.Equal(t, envLong.ID, *got)

	// no match
	got, err = h.classifier.Classify(ctx, cheque.ID, "UNRELATED MERCHANT")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveKeywordReplacesSamePattern(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	envA := h.envelope(t, "A")
	envB := h.envelope(t, "B")

	_, err := h.classifier.SaveKeyword(ctx, envA.ID, "", "SPOTIFY")
	require.NoError(t, err)
	_, err = h.classifier.SaveKeyword(ctx, envB.ID, "", "SPOTIFY")
	require.NoError(t, err)

	all, err := h.keywords.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, envB.ID, all[0].EnvelopeID)
}

func TestApplyKeywordForceSemantics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	acct := h.account(t, "Cheque")
	env3 := h.envelope(t, "Eating Out")
	env9 := h.envelope(t, "Subscriptions")

	// five matching rows: two already assigned, three unassigned
	h.rawTx(t, acct.ID, &env9.ID, -1000, "Coffee Shop CBD")
	h.rawTx(t, acct.ID, &env9.ID, -1100, "Coffee Shop Docklands")
	h.rawTx(t, acct.ID, nil, -1200, "Coffee Shop Richmond")
	h.rawTx(t, acct.ID, nil, -1300, "Coffee Shop Fitzroy")
	h.rawTx(t, acct.ID, nil, -1400, "Coffee Shop Carlton")
	// and one non-matching row
	h.rawTx(t, acct.ID, nil, -9900, "Hardware Store")

	k, err := h.classifier.SaveKeyword(ctx, env3.ID, "", "Coffee Shop")
	require.NoError(t, err)

	n, err := h.classifier.ApplyKeyword(ctx, k.ID, false)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, int64(-1200-1300-1400), h.balance(t, env3.ID))
	require.Equal(t, int64(-1000-1100), h.balance(t, env9.ID))
	t.Log("non-force left assigned rows alone")

	n, err = h.classifier.ApplyKeyword(ctx, k.ID, true)
	require.NoError(t, err)
	require.Equal(t, 2, n) // the three moved rows already point at the target
	require.Equal(t, int64(-1000-1100-1200-1300-1400), h.balance(t, env3.ID))
	require.Equal(t, int64(0), h.balance(t, env9.ID))
}

func TestApplyKeywordRespectsScope(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	cheque := h.account(t, "Cheque")
	savings := h.account(t, "Savings")
	env := h.envelope(t, "Transport")

	h.rawTx(t, cheque.ID, nil, -500, "UBER TRIP")
	h.rawTx(t, savings.ID, nil, -600, "UBER TRIP")

	k, err := h.classifier.SaveKeyword(ctx, env.ID, "Cheque", "UBER")
	require.NoError(t, err)

	n, err := h.classifier.ApplyKeyword(ctx, k.ID, true)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, int64(-500), h.balance(t, env.ID))
}

func TestKeywordMatchingIsCaseSensitive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	cheque := h.account(t, "Cheque")
	env := h.envelope(t, "Eating Out")
	h.rawTx(t, cheque.ID, nil, -1000, "COFFEE SHOP MELBOURNE")

	lower, err := h.classifier.SaveKeyword(ctx, env.ID, "", "coffee shop")
	require.NoError(t, err)

	got, err := h.classifier.Classify(ctx, cheque.ID, "COFFEE SHOP MELBOURNE")
	require.NoError(t, err)
	require.Nil(t, got, "lowercase pattern must not match uppercase description")

	n, err := h.classifier.ApplyKeyword(ctx, lower.ID, true)
	require.NoError(t, err)
	require.Zero(t, n)
	t.Log("lowercase keyword matched nothing")

	upper, err := h.classifier.SaveKeyword(ctx, env.ID, "", "COFFEE SHOP")
	require.NoError(t, err)

	got, err = h.classifier.Classify(ctx, cheque.ID, "COFFEE SHOP MELBOURNE")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, env.ID, *got)

	n, err = h.classifier.ApplyKeyword(ctx, upper.ID, true)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
