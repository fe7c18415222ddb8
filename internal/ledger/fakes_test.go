package ledger

import (
	"context"
	"sync"

	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/store"
)

// memAccounts is an in-memory AccountStore with a real compare-and-set, so
// concurrency tests exercise the same conflict semantics as Postgres.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newMemAccounts(accounts ...*models.Account) *memAccounts {
	m := &memAccounts{accounts: map[string]*models.Account{}}
	for _, a := range accounts {
		copied := *a
		m.accounts[a.ID] = &copied
	}
	return m
}

func (m *memAccounts) GetForUpdate(ctx context.Context, accountID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *memAccounts) CompareAndSetBalance(ctx context.Context, accountID string, expected, newBalance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok || account.Balance != expected {
		return store.ErrConflict
	}
	account.Balance = newBalance
	return nil
}

func (m *memAccounts) FindByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.AccountNumber == accountNumber {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memAccounts) balance(accountID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[accountID].Balance
}

func (m *memAccounts) setStatus(accountID string, status models.AccountStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID].Status = status
}

// conflictingAccounts injects CAS conflicts before delegating.
type conflictingAccounts struct {
	*memAccounts
	mu        sync.Mutex
	conflicts int
}

func (c *conflictingAccounts) CompareAndSetBalance(ctx context.Context, accountID string, expected, newBalance int64) error {
	c.mu.Lock()
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return store.ErrConflict
	}
	c.mu.Unlock()
	return c.memAccounts.CompareAndSetBalance(ctx, accountID, expected, newBalance)
}

// memEntries is an in-memory TransactionStore with error injection: failNext
// fails the next write, failSubtype fails every write of one subtype.
type memEntries struct {
	mu          sync.Mutex
	entries     []models.Transaction
	failNext    error
	failSubtype string
	failErr     error
}

func (m *memEntries) Create(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	if m.failSubtype != "" && tx.Subtype == m.failSubtype {
		return m.failErr
	}
	if tx.ID == "" {
		tx.ID = "entry-" + tx.Reference
	}
	m.entries = append(m.entries, *tx)
	return nil
}

func (m *memEntries) FindByReference(ctx context.Context, accountID, reference, subtype string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		e := m.entries[i]
		if e.AccountID == accountID && e.Reference == reference && e.Subtype == subtype {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memEntries) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []models.Transaction{}
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result, nil
}

// completedSum applies all completed entries for an account, signed by
// direction.
func (m *memEntries) completedSum(accountID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.AccountID == accountID && e.Status == models.Completed {
			sum += e.Signed()
		}
	}
	return sum
}

func (m *memEntries) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// memReconQueue records reconciliation jobs.
type memReconQueue struct {
	mu   sync.Mutex
	jobs []ReconciliationJob
}

func (q *memReconQueue) Enqueue(ctx context.Context, job ReconciliationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// memSettlementQueue records settlement jobs.
type memSettlementQueue struct {
	mu   sync.Mutex
	jobs []SettlementJob
}

func (q *memSettlementQueue) Enqueue(ctx context.Context, job SettlementJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// scriptedPoster records posts and fails selected subtypes.
type scriptedPoster struct {
	mu       sync.Mutex
	requests []PostRequest
	failOn   map[string]error // subtype -> error
}

func (p *scriptedPoster) Post(ctx context.Context, req PostRequest) (*models.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if err, ok := p.failOn[req.Subtype]; ok {
		return nil, err
	}
	return &models.Transaction{
		AccountID: req.AccountID,
		Type:      req.Type,
		Amount:    req.Amount,
		Subtype:   req.Subtype,
		Status:    models.Completed,
		Reference: req.Reference,
	}, nil
}
