package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fortebank/backend/internal/audit"
	"github.com/fortebank/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeAccount(id string, balance int64) *models.Account {
	return &models.Account{
		ID:            id,
		AccountNumber: "10000000" + id,
		RoutingNumber: "044000037",
		Balance:       balance,
		Status:        models.AccountActive,
	}
}

func newTestWriter(accounts *memAccounts, entries *memEntries, recon ReconciliationQueue) *Writer {
	return &Writer{
		accounts:   accounts,
		entries:    entries,
		audit:      audit.NewLogger(),
		recon:      recon,
		maxRetries: 5,
		backoff:    time.Millisecond,
	}
}

func TestWriterPostDebit(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 50000))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Debit,
		Amount:    20000,
		Subtype:   models.SubtypeWithdrawal,
	})

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.Completed, entry.Status)
	assert.Equal(t, int64(20000), entry.Amount)
	assert.Equal(t, int64(30000), entry.BalanceAfter)
	assert.Contains(t, entry.Reference, "TXN-")
	assert.Equal(t, int64(30000), accounts.balance("acc-1"))
	assert.Equal(t, 1, entries.count())
}

func TestWriterPostCredit(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 1000))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Credit,
		Amount:    2500,
		Subtype:   models.SubtypeDeposit,
		Reference: "TXN-fixed",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3500), entry.BalanceAfter)
	assert.Equal(t, "TXN-fixed", entry.Reference)
	assert.Equal(t, int64(3500), accounts.balance("acc-1"))
}

func TestWriterPostInvalidAmount(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 1000))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	for _, amount := range []int64{0, -500} {
		entry, err := writer.Post(context.Background(), PostRequest{
			AccountID: "acc-1",
			Type:      models.Credit,
			Amount:    amount,
			Subtype:   models.SubtypeDeposit,
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Nil(t, entry)
	}
	assert.Equal(t, int64(1000), accounts.balance("acc-1"))
	assert.Equal(t, 0, entries.count())
}

func TestWriterPostInsufficientFunds(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 5000))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Debit,
		Amount:    7500,
		Subtype:   models.SubtypeWithdrawal,
	})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Nil(t, entry)
	assert.Equal(t, int64(5000), accounts.balance("acc-1"), "balance must be untouched on rejection")
	assert.Equal(t, 0, entries.count(), "no ledger row on a rejected debit")
}

func TestWriterPostAccountUnavailable(t *testing.T) {
	suspended := activeAccount("acc-1", 5000)
	suspended.Status = models.AccountSuspended
	accounts := newMemAccounts(suspended)
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	t.Run("suspended account", func(t *testing.T) {
		_, err := writer.Post(context.Background(), PostRequest{
			AccountID: "acc-1",
			Type:      models.Credit,
			Amount:    100,
			Subtype:   models.SubtypeDeposit,
		})
		assert.ErrorIs(t, err, ErrAccountUnavailable)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := writer.Post(context.Background(), PostRequest{
			AccountID: "missing",
			Type:      models.Credit,
			Amount:    100,
			Subtype:   models.SubtypeDeposit,
		})
		assert.ErrorIs(t, err, ErrAccountUnavailable)
	})

	assert.Equal(t, 0, entries.count())
}

func TestWriterPostClampToZero(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 3000))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Debit,
		Amount:    5000,
		Subtype:   models.SubtypeAdminAdjust,
		Policy:    ClampToZero,
	})

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(3000), entry.Amount, "debit is reduced to the available balance")
	assert.Equal(t, int64(0), entry.BalanceAfter)
	assert.Equal(t, int64(0), accounts.balance("acc-1"))
}

func TestWriterPostClampToZeroNoop(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 0))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Debit,
		Amount:    5000,
		Subtype:   models.SubtypeAdminAdjust,
		Policy:    ClampToZero,
	})

	require.NoError(t, err)
	assert.Nil(t, entry, "clamping an empty account is a no-op")
	assert.Equal(t, 0, entries.count())
}

func TestWriterPostRetriesConflicts(t *testing.T) {
	accounts := &conflictingAccounts{
		memAccounts: newMemAccounts(activeAccount("acc-1", 10000)),
		conflicts:   2,
	}
	entries := &memEntries{}
	writer := &Writer{
		accounts:   accounts,
		entries:    entries,
		audit:      audit.NewLogger(),
		maxRetries: 5,
		backoff:    time.Millisecond,
	}

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Debit,
		Amount:    4000,
		Subtype:   models.SubtypeWithdrawal,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(6000), entry.BalanceAfter)
	assert.Equal(t, int64(6000), accounts.balance("acc-1"))
}

func TestWriterPostConcurrencyExhausted(t *testing.T) {
	accounts := &conflictingAccounts{
		memAccounts: newMemAccounts(activeAccount("acc-1", 10000)),
		conflicts:   100,
	}
	entries := &memEntries{}
	writer := &Writer{
		accounts:   accounts,
		entries:    entries,
		audit:      audit.NewLogger(),
		maxRetries: 3,
		backoff:    time.Millisecond,
	}

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Debit,
		Amount:    4000,
		Subtype:   models.SubtypeWithdrawal,
	})

	assert.ErrorIs(t, err, ErrConcurrencyExhausted)
	assert.Nil(t, entry)
	assert.Equal(t, int64(10000), accounts.balance("acc-1"))
	assert.Equal(t, 0, entries.count())
}

func TestWriterPostLedgerInconsistency(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 10000))
	entries := &memEntries{failNext: errors.New("connection reset")}
	recon := &memReconQueue{}
	writer := newTestWriter(accounts, entries, recon)

	entry, err := writer.Post(context.Background(), PostRequest{
		AccountID: "acc-1",
		Type:      models.Debit,
		Amount:    4000,
		Subtype:   models.SubtypeWithdrawal,
		Reference: "TXN-incident",
	})

	assert.ErrorIs(t, err, ErrLedgerInconsistency)
	assert.Nil(t, entry)
	assert.Equal(t, int64(6000), accounts.balance("acc-1"), "the balance commit stands")

	require.Len(t, recon.jobs, 1)
	job := recon.jobs[0]
	assert.Equal(t, "acc-1", job.AccountID)
	assert.Equal(t, "TXN-incident", job.Reference)
	assert.Equal(t, int64(4000), job.Amount)
	assert.Equal(t, int64(6000), job.BalanceAfter, "job carries the balance snapshot at commit time")
}

// Two writers racing to debit the full balance: exactly one must win, the
// loser must see a clean rejection after re-reading, and the ledger must
// still reconcile with the balance.
func TestWriterConcurrentDebits(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 10000))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = writer.Post(context.Background(), PostRequest{
				AccountID: "acc-1",
				Type:      models.Debit,
				Amount:    10000,
				Subtype:   models.SubtypeWithdrawal,
			})
		}(i)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		assert.True(t,
			errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrConcurrencyExhausted),
			"loser must fail with a typed error, got %v", err)
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(0), accounts.balance("acc-1"))
	assert.Equal(t, accounts.balance("acc-1"), entries.completedSum("acc-1"))
}

// The balance must always equal the signed sum of completed entries after an
// arbitrary mix of postings.
func TestWriterBalanceMatchesLedger(t *testing.T) {
	accounts := newMemAccounts(activeAccount("acc-1", 0))
	entries := &memEntries{}
	writer := newTestWriter(accounts, entries, nil)
	ctx := context.Background()

	postings := []PostRequest{
		{AccountID: "acc-1", Type: models.Credit, Amount: 100000, Subtype: models.SubtypeDeposit},
		{AccountID: "acc-1", Type: models.Debit, Amount: 2500, Subtype: models.SubtypeWithdrawal},
		{AccountID: "acc-1", Type: models.Credit, Amount: 999, Subtype: models.SubtypeDeposit},
		{AccountID: "acc-1", Type: models.Debit, Amount: 200000, Subtype: models.SubtypeWithdrawal}, // rejected
		{AccountID: "acc-1", Type: models.Debit, Amount: 98499, Subtype: models.SubtypeWithdrawal},
	}
	for _, req := range postings {
		_, err := writer.Post(ctx, req)
		if req.Amount > 100000 {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
			continue
		}
		require.NoError(t, err)
	}

	assert.Equal(t, int64(0), accounts.balance("acc-1"))
	assert.Equal(t, accounts.balance("acc-1"), entries.completedSum("acc-1"))
	assert.Equal(t, 4, entries.count())
}
