package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortebank/backend/internal/audit"
	"github.com/fortebank/backend/internal/config"
	"github.com/fortebank/backend/internal/database"
	"github.com/fortebank/backend/internal/ledger"
	"github.com/fortebank/backend/internal/queue"
	"github.com/fortebank/backend/internal/services"
	"github.com/fortebank/backend/internal/store"
)

const drainInterval = 5 * time.Second

func main() {
	cfg := config.Load()

	db := database.InitDatabase(cfg.Database)
	defer db.Close()

	redisClient := database.InitRedis(cfg.Redis)
	if redisClient == nil {
		log.Fatal("Worker requires Redis for reconciliation and settlement queues")
	}
	defer redisClient.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbit.Close()

	accounts := store.NewPostgresAccountStore(db)
	entries := store.NewPostgresTransactionStore(db)
	auditLog := audit.NewLogger()
	reconQueue := queue.NewRedisReconciliationQueue(redisClient)
	settlementQueue := queue.NewRedisSettlementQueue(redisClient)

	writer := ledger.NewWriter(accounts, entries, auditLog, reconQueue, cfg.Ledger.MaxRetries, cfg.Ledger.RetryBackoff)
	reconciler := ledger.NewReconciler(entries, auditLog)
	settlementService := services.NewSettlementService(cfg.BankBIC)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = rabbit.ConsumePostings(ctx, func(ctx context.Context, msg queue.PostingMessage) error {
		_, err := writer.Post(ctx, ledger.PostRequest{
			AccountID:   msg.AccountID,
			Type:        msg.Type,
			Amount:      msg.Amount,
			Subtype:     msg.Subtype,
			Reference:   msg.Reference,
			Description: msg.Description,
		})
		if err != nil {
			// Precondition failures are final for this posting: the audit
			// trail has the rejection and a redelivery cannot change the
			// outcome. Anything else is transient (conflict exhaustion, a
			// store outage) and returns an error so the consumer requeues
			// the delivery for one more attempt.
			if errors.Is(err, ledger.ErrInvalidAmount) ||
				errors.Is(err, ledger.ErrAccountUnavailable) ||
				errors.Is(err, ledger.ErrInsufficientFunds) {
				log.Printf("[WORKER] posting %s rejected: %v", msg.Reference, err)
				return nil
			}
			if errors.Is(err, ledger.ErrLedgerInconsistency) {
				// The balance committed and the missing row is on the
				// reconciliation queue; reapplying the posting would debit
				// or credit the account a second time.
				log.Printf("[WORKER] posting %s escalated to reconciliation: %v", msg.Reference, err)
				return nil
			}
			return err
		}
		log.Printf("[WORKER] posting %s completed", msg.Reference)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to start posting consumer: %v", err)
	}

	go drainReconciliation(ctx, reconQueue, reconciler)
	go drainSettlement(ctx, settlementQueue, settlementService)

	log.Println("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Worker shutting down...")
	cancel()
	time.Sleep(time.Second)
	log.Println("Worker stopped")
}

// drainReconciliation replays failed ledger-entry writes. A job that fails
// again goes back on the queue; repair is idempotent so replays are safe.
func drainReconciliation(ctx context.Context, q *queue.RedisReconciliationQueue, reconciler *ledger.Reconciler) {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				job, err := q.Dequeue(ctx)
				if err != nil {
					log.Printf("[WORKER] reconciliation dequeue failed: %v", err)
					break
				}
				if job == nil {
					break
				}

				if err := reconciler.Repair(ctx, *job); err != nil {
					log.Printf("[WORKER] reconciliation of %s failed, requeueing: %v", job.Reference, err)
					if qErr := q.Enqueue(ctx, *job); qErr != nil {
						log.Printf("[WORKER] failed to requeue reconciliation %s: %v", job.Reference, qErr)
					}
					break
				}
				log.Printf("[WORKER] reconciled ledger entry %s", job.Reference)
			}
		}
	}
}

func drainSettlement(ctx context.Context, q *queue.RedisSettlementQueue, settlement *services.SettlementService) {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				job, err := q.Dequeue(ctx)
				if err != nil {
					log.Printf("[WORKER] settlement dequeue failed: %v", err)
					break
				}
				if job == nil {
					break
				}

				if err := settlement.Settle(job); err != nil {
					log.Printf("[WORKER] settlement of %s failed, requeueing: %v", job.Reference, err)
					if qErr := q.Enqueue(ctx, *job); qErr != nil {
						log.Printf("[WORKER] failed to requeue settlement %s: %v", job.Reference, qErr)
					}
					break
				}
				log.Printf("[WORKER] settled transfer %s", job.Reference)
			}
		}
	}
}
