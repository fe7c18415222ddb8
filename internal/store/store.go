package store

import (
	"context"
	"errors"

	"github.com/fortebank/backend/internal/models"
)

var (
	// ErrNotFound is returned when an account or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by CompareAndSetBalance when another writer
	// changed the balance first. The caller must retry from a fresh read,
	// never overwrite.
	ErrConflict = errors.New("balance conflict")
)

// AccountStore is the contract the ledger core requires from the account
// persistence layer. The account row is the single shared mutable resource;
// it is never read-modify-written outside the compare-and-set below.
type AccountStore interface {
	// GetForUpdate returns a fresh committed read of the account, suitable
	// for a subsequent CompareAndSetBalance.
	GetForUpdate(ctx context.Context, accountID string) (*models.Account, error)

	// CompareAndSetBalance atomically sets the balance only if the stored
	// value still equals expected. Returns ErrConflict otherwise.
	CompareAndSetBalance(ctx context.Context, accountID string, expected, newBalance int64) error

	FindByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error)
}

// TransactionStore persists ledger entries.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error

	// FindByReference looks up an entry by (account, reference, subtype).
	// Used by reconciliation to make ledger repair idempotent.
	FindByReference(ctx context.Context, accountID, reference, subtype string) (*models.Transaction, error)

	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error)
}
