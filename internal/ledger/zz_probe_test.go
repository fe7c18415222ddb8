package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fortebank/backend/internal/models"
)

type recAccounts struct {
	*memAccounts
	hmu  sync.Mutex
	hist []string
}

func (l *recAccounts) CompareAndSetBalance(ctx context.Context, accountID string, expected, newBalance int64) error {
	err := l.memAccounts.CompareAndSetBalance(ctx, accountID, expected, newBalance)
	l.hmu.Lock()
	l.hist = append(l.hist, fmt.Sprintf("CAS exp=%d new=%d err=%v", expected, newBalance, err))
	l.hmu.Unlock()
	return err
}

func TestZZProbeConcurrentDebits(t *testing.T) {
	for iter := 0; iter < 200; iter++ {
		mem := newMemAccounts(activeAccount("acc-1", 10000))
		accounts := &recAccounts{memAccounts: mem}
		entries := &memEntries{}
		writer := newTestWriter(mem, entries, nil)
		writer.accounts = accounts

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
		if b := mem.balance("acc-1"); b != 0 {
			t.Fatalf("iter %d: balance=%d results=[%v | %v] hist=%v", iter, b, results[0], results[1], accounts.hist)
		}
	}
}
