package ledger

import "errors"

var (
	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountUnavailable means the account is missing, suspended or closed.
	ErrAccountUnavailable = errors.New("account unavailable")

	// ErrInsufficientFunds means the debit would take the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRecipientNotFound means no account matches the given account number.
	ErrRecipientNotFound = errors.New("recipient account not found")

	// ErrSameAccount rejects transfers from an account to itself.
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrConcurrencyExhausted means the compare-and-set retry budget ran out.
	ErrConcurrencyExhausted = errors.New("too many concurrent balance updates, try again")

	// ErrLedgerInconsistency means the balance update committed but the
	// ledger entry write failed. The operation has been queued for
	// reconciliation and must not be retried blindly.
	ErrLedgerInconsistency = errors.New("balance committed but ledger entry write failed")

	// ErrTransferPartialFailure means the credit leg of a transfer failed
	// and the compensating reversal also failed. Requires manual
	// reconciliation.
	ErrTransferPartialFailure = errors.New("transfer failed and compensation failed")
)
