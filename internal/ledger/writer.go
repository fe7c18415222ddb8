package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fortebank/backend/internal/audit"
	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/store"
	"github.com/google/uuid"
)

// DebitPolicy controls how a debit behaves when the balance cannot cover it.
type DebitPolicy int

const (
	// RejectOverdraft fails the debit with ErrInsufficientFunds. This is the
	// policy for customer-initiated withdrawals and transfers.
	RejectOverdraft DebitPolicy = iota

	// ClampToZero reduces the debit to the available balance, landing the
	// account at exactly zero. Admin subtract runs with this policy.
	ClampToZero
)

// PostRequest describes one intended money movement.
type PostRequest struct {
	AccountID   string
	Type        models.EntryType
	Amount      int64
	Subtype     string
	Reference   string
	Description string
	Policy      DebitPolicy
}

// ReconciliationJob captures a committed balance update whose ledger entry
// write failed. The worker replays the entry write until it sticks.
type ReconciliationJob struct {
	AccountID    string           `json:"account_id"`
	Type         models.EntryType `json:"type"`
	Amount       int64            `json:"amount"`
	Subtype      string           `json:"subtype"`
	Reference    string           `json:"reference"`
	Description  string           `json:"description,omitempty"`
	BalanceAfter int64            `json:"balance_after"`
	QueuedAt     time.Time        `json:"queued_at"`
}

// ReconciliationQueue accepts inconsistency repair jobs. Enqueue failures
// are escalated through the audit log, never swallowed.
type ReconciliationQueue interface {
	Enqueue(ctx context.Context, job ReconciliationJob) error
}

// Writer performs one balance mutation and its ledger entry as a unit.
// Concurrency safety rests entirely on the account store's compare-and-set:
// conflicting writers retry from a fresh read instead of overwriting.
type Writer struct {
	accounts   store.AccountStore
	entries    store.TransactionStore
	audit      *audit.Logger
	recon      ReconciliationQueue
	maxRetries int
	backoff    time.Duration
}

func NewWriter(accounts store.AccountStore, entries store.TransactionStore, auditLog *audit.Logger, recon ReconciliationQueue, maxRetries int, backoff time.Duration) *Writer {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	return &Writer{
		accounts:   accounts,
		entries:    entries,
		audit:      auditLog,
		recon:      recon,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Post applies one credit or debit and writes the matching ledger entry.
// On any precondition failure nothing is written and the typed error is
// returned. A ClampToZero debit that finds nothing to debit is a no-op and
// returns a nil entry.
func (w *Writer) Post(ctx context.Context, req PostRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Type != models.Credit && req.Type != models.Debit {
		return nil, fmt.Errorf("unknown entry type %q", req.Type)
	}

	reference := req.Reference
	if reference == "" {
		reference = "TXN-" + uuid.New().String()
	}

	for attempt := 1; ; attempt++ {
		account, err := w.accounts.GetForUpdate(ctx, req.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrAccountUnavailable
			}
			return nil, err
		}
		if !account.CanTransact() {
			return nil, fmt.Errorf("%w: account %s is %s", ErrAccountUnavailable, account.ID, account.Status)
		}

		amount := req.Amount
		var newBalance int64
		if req.Type == models.Credit {
			newBalance = account.Balance + amount
		} else {
			newBalance = account.Balance - amount
			if newBalance < 0 {
				if req.Policy != ClampToZero {
					w.audit.LogRejected(reference, account.ID, string(req.Type), req.Subtype, amount, "insufficient funds")
					return nil, ErrInsufficientFunds
				}
				amount = account.Balance
				newBalance = 0
				if amount == 0 {
					// Nothing to debit; the balance is already at the floor.
					return nil, nil
				}
			}
		}

		err = w.accounts.CompareAndSetBalance(ctx, account.ID, account.Balance, newBalance)
		if err == nil {
			return w.writeEntry(ctx, account.ID, req, reference, amount, newBalance)
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		if attempt >= w.maxRetries {
			w.audit.LogRejected(reference, account.ID, string(req.Type), req.Subtype, amount, "compare-and-set retries exhausted")
			return nil, ErrConcurrencyExhausted
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
}

// writeEntry runs after the compare-and-set committed. A failure here leaves
// balance and ledger inconsistent; the job is queued for reconciliation and
// the caller gets ErrLedgerInconsistency instead of a silent success.
func (w *Writer) writeEntry(ctx context.Context, accountID string, req PostRequest, reference string, amount, newBalance int64) (*models.Transaction, error) {
	entry := &models.Transaction{
		AccountID:    accountID,
		Type:         req.Type,
		Subtype:      req.Subtype,
		Amount:       amount,
		Status:       models.Completed,
		BalanceAfter: newBalance,
		Reference:    reference,
		Description:  req.Description,
	}
	if err := w.entries.Create(ctx, entry); err != nil {
		w.audit.LogInconsistency(reference, accountID, string(req.Type), req.Subtype, amount, newBalance, err)
		job := ReconciliationJob{
			AccountID:    accountID,
			Type:         req.Type,
			Amount:       amount,
			Subtype:      req.Subtype,
			Reference:    reference,
			Description:  req.Description,
			BalanceAfter: newBalance,
			QueuedAt:     time.Now(),
		}
		if w.recon != nil {
			if qErr := w.recon.Enqueue(ctx, job); qErr != nil {
				log.Printf("[LEDGER] failed to queue reconciliation for %s: %v", reference, qErr)
			}
		}
		return nil, fmt.Errorf("%w: account %s, reference %s: %v", ErrLedgerInconsistency, accountID, reference, err)
	}

	w.audit.LogPosting(reference, accountID, string(req.Type), req.Subtype, amount, newBalance)
	return entry, nil
}
