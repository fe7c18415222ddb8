package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fortebank/backend/internal/audit"
	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/store"
	"github.com/google/uuid"
)

// Poster is the slice of Writer the orchestrator needs.
type Poster interface {
	Post(ctx context.Context, req PostRequest) (*models.Transaction, error)
}

// SettlementJob is a settled international transfer awaiting ISO 20022
// conversion by the worker.
type SettlementJob struct {
	Reference         string    `json:"reference"`
	FromAccountNumber string    `json:"from_account_number"`
	ToAccountNumber   string    `json:"to_account_number"`
	ToRoutingNumber   string    `json:"to_routing_number"`
	Amount            int64     `json:"amount"`
	Fee               int64     `json:"fee"`
	Currency          string    `json:"currency"`
	SettledAt         time.Time `json:"settled_at"`
}

// SettlementQueue accepts settled international transfers.
type SettlementQueue interface {
	Enqueue(ctx context.Context, job SettlementJob) error
}

// TransferOrchestrator composes two ledger postings, sharing one reference,
// into a single logical transfer with compensating behavior: the sender must
// never end up debited with no corresponding credit anywhere.
type TransferOrchestrator struct {
	poster           Poster
	accounts         store.AccountStore
	audit            *audit.Logger
	settlement       SettlementQueue
	internationalFee int64
	currency         string
}

func NewTransferOrchestrator(poster Poster, accounts store.AccountStore, auditLog *audit.Logger, settlement SettlementQueue, internationalFee int64, currency string) *TransferOrchestrator {
	return &TransferOrchestrator{
		poster:           poster,
		accounts:         accounts,
		audit:            auditLog,
		settlement:       settlement,
		internationalFee: internationalFee,
		currency:         currency,
	}
}

// Transfer moves amount from the sender to the account identified by
// toAccountNumber and returns the reference correlating both legs.
// International transfers additionally debit a flat fee from the sender.
func (o *TransferOrchestrator) Transfer(ctx context.Context, fromAccountID, toAccountNumber string, amount int64, transferType models.TransferType, description string) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}

	recipient, err := o.accounts.FindByAccountNumber(ctx, toAccountNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrRecipientNotFound
		}
		return "", err
	}
	if recipient.ID == fromAccountID {
		return "", ErrSameAccount
	}

	var fee int64
	if transferType == models.TransferInternational {
		fee = o.internationalFee
	}
	totalDebit := amount + fee
	reference := "TRF-" + uuid.New().String()

	// Debit leg first. Any failure here aborts the whole transfer before the
	// recipient is touched.
	_, err = o.poster.Post(ctx, PostRequest{
		AccountID:   fromAccountID,
		Type:        models.Debit,
		Amount:      totalDebit,
		Subtype:     models.SubtypeTransferOut,
		Reference:   reference,
		Description: description,
	})
	if err != nil {
		return "", err
	}

	_, err = o.poster.Post(ctx, PostRequest{
		AccountID:   recipient.ID,
		Type:        models.Credit,
		Amount:      amount,
		Subtype:     models.SubtypeTransferIn,
		Reference:   reference,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, ErrLedgerInconsistency) {
			// The recipient's balance commit stands; only the ledger row is
			// pending repair. Refunding the sender now would let the
			// recipient keep the credit twice over.
			o.audit.LogTransfer(reference, fromAccountID, recipient.ID, amount, fee, "ESCALATED")
			return "", err
		}
		return "", o.compensate(ctx, fromAccountID, totalDebit, reference, err)
	}

	o.audit.LogTransfer(reference, fromAccountID, recipient.ID, amount, fee, "COMPLETED")

	if transferType == models.TransferInternational && o.settlement != nil {
		sender, lookupErr := o.accounts.GetForUpdate(ctx, fromAccountID)
		fromNumber := fromAccountID
		if lookupErr == nil {
			fromNumber = sender.AccountNumber
		}
		job := SettlementJob{
			Reference:         reference,
			FromAccountNumber: fromNumber,
			ToAccountNumber:   toAccountNumber,
			ToRoutingNumber:   recipient.RoutingNumber,
			Amount:            amount,
			Fee:               fee,
			Currency:          o.currency,
			SettledAt:         time.Now(),
		}
		if qErr := o.settlement.Enqueue(ctx, job); qErr != nil {
			// The transfer itself is complete; settlement messaging catches
			// up out of band.
			o.audit.LogError(reference, fromAccountID, fmt.Errorf("settlement enqueue failed: %w", qErr))
		}
	}

	return reference, nil
}

// compensate reverses a committed debit leg after the credit leg failed. If
// the reversal itself fails the transfer is escalated for manual
// reconciliation; retrying blindly could double-apply.
func (o *TransferOrchestrator) compensate(ctx context.Context, fromAccountID string, totalDebit int64, reference string, creditErr error) error {
	_, err := o.poster.Post(ctx, PostRequest{
		AccountID:   fromAccountID,
		Type:        models.Credit,
		Amount:      totalDebit,
		Subtype:     models.SubtypeTransferReversal,
		Reference:   reference,
		Description: "reversal of failed transfer",
	})
	if err != nil {
		o.audit.LogError(reference, fromAccountID, fmt.Errorf("compensation failed after credit leg error %v: %w", creditErr, err))
		return fmt.Errorf("%w: reference %s: credit leg: %v, reversal: %v", ErrTransferPartialFailure, reference, creditErr, err)
	}

	o.audit.LogTransfer(reference, fromAccountID, "", totalDebit, 0, "REVERSED")
	return fmt.Errorf("transfer %s reversed: %w", reference, creditErr)
}
