package ledger

import (
	"context"
	"errors"

	"github.com/fortebank/backend/internal/audit"
	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/store"
)

// Reconciler repairs the one failure state the writer cannot prevent: a
// committed balance update whose ledger entry never landed. Repair is
// idempotent by (account, reference, subtype), so a job may be replayed
// safely but a repaired entry is never double-applied.
type Reconciler struct {
	entries store.TransactionStore
	audit   *audit.Logger
}

func NewReconciler(entries store.TransactionStore, auditLog *audit.Logger) *Reconciler {
	return &Reconciler{entries: entries, audit: auditLog}
}

// Repair writes the missing ledger entry for the job. The balance is already
// committed; only the entry is replayed, with the BalanceAfter recorded at
// commit time.
func (r *Reconciler) Repair(ctx context.Context, job ReconciliationJob) error {
	existing, err := r.entries.FindByReference(ctx, job.AccountID, job.Reference, job.Subtype)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if existing != nil {
		// Already repaired, or the original write landed after all.
		return nil
	}

	entry := &models.Transaction{
		AccountID:    job.AccountID,
		Type:         job.Type,
		Subtype:      job.Subtype,
		Amount:       job.Amount,
		Status:       models.Completed,
		BalanceAfter: job.BalanceAfter,
		Reference:    job.Reference,
		Description:  job.Description,
	}
	if err := r.entries.Create(ctx, entry); err != nil {
		return err
	}

	r.audit.LogPosting(job.Reference, job.AccountID, string(job.Type), job.Subtype, job.Amount, job.BalanceAfter)
	return nil
}
