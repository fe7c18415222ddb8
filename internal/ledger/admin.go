package ledger

import (
	"context"

	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/store"
)

// AdjustOperation is an admin balance adjustment mode.
type AdjustOperation string

const (
	AdjustSet      AdjustOperation = "set"
	AdjustAdd      AdjustOperation = "add"
	AdjustSubtract AdjustOperation = "subtract"
)

// Adjuster maps admin balance adjustments onto ledger postings. Unlike
// customer withdrawals, admin subtract clamps to zero instead of failing on
// insufficient funds; the asymmetry is deliberate and carried as a named
// policy on the posting.
type Adjuster struct {
	poster   Poster
	accounts store.AccountStore
}

func NewAdjuster(poster Poster, accounts store.AccountStore) *Adjuster {
	return &Adjuster{poster: poster, accounts: accounts}
}

// Adjust applies the operation and returns the resulting ledger entry, or
// nil when the adjustment was a no-op (set to the current balance, or a
// clamped subtract on an empty account).
func (a *Adjuster) Adjust(ctx context.Context, accountID string, op AdjustOperation, amount int64, description string) (*models.Transaction, error) {
	switch op {
	case AdjustAdd:
		return a.poster.Post(ctx, PostRequest{
			AccountID:   accountID,
			Type:        models.Credit,
			Amount:      amount,
			Subtype:     models.SubtypeAdminAdjust,
			Description: description,
		})
	case AdjustSubtract:
		return a.poster.Post(ctx, PostRequest{
			AccountID:   accountID,
			Type:        models.Debit,
			Amount:      amount,
			Subtype:     models.SubtypeAdminAdjust,
			Description: description,
			Policy:      ClampToZero,
		})
	case AdjustSet:
		return a.set(ctx, accountID, amount, description)
	default:
		return nil, ErrInvalidAmount
	}
}

func (a *Adjuster) set(ctx context.Context, accountID string, target int64, description string) (*models.Transaction, error) {
	if target < 0 {
		return nil, ErrInvalidAmount
	}
	account, err := a.accounts.GetForUpdate(ctx, accountID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrAccountUnavailable
		}
		return nil, err
	}

	delta := target - account.Balance
	if delta == 0 {
		return nil, nil
	}

	req := PostRequest{
		AccountID:   accountID,
		Subtype:     models.SubtypeAdminAdjust,
		Description: description,
	}
	if delta > 0 {
		req.Type = models.Credit
		req.Amount = delta
	} else {
		req.Type = models.Debit
		req.Amount = -delta
		// A concurrent credit between the read above and the posting would
		// overshoot the target downward; clamp so the floor stays at zero.
		req.Policy = ClampToZero
	}
	return a.poster.Post(ctx, req)
}
