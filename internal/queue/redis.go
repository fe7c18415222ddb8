package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fortebank/backend/internal/ledger"
	"github.com/go-redis/redis/v8"
)

const (
	reconciliationKey = "reconciliation_queue"
	settlementKey     = "settlement_queue"
)

// RedisReconciliationQueue holds ledger-repair jobs for the worker.
// Implements ledger.ReconciliationQueue.
type RedisReconciliationQueue struct {
	client *redis.Client
}

func NewRedisReconciliationQueue(client *redis.Client) *RedisReconciliationQueue {
	return &RedisReconciliationQueue{client: client}
}

func (q *RedisReconciliationQueue) Enqueue(ctx context.Context, job ledger.ReconciliationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, reconciliationKey, data).Err()
}

// Dequeue pops the oldest job. Returns (nil, nil) when the queue is empty.
func (q *RedisReconciliationQueue) Dequeue(ctx context.Context) (*ledger.ReconciliationJob, error) {
	data, err := q.client.LPop(ctx, reconciliationKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job ledger.ReconciliationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reconciliation job: %w", err)
	}
	return &job, nil
}

// RedisSettlementQueue holds settled international transfers awaiting
// ISO 20022 conversion. Implements ledger.SettlementQueue.
type RedisSettlementQueue struct {
	client *redis.Client
}

func NewRedisSettlementQueue(client *redis.Client) *RedisSettlementQueue {
	return &RedisSettlementQueue{client: client}
}

func (q *RedisSettlementQueue) Enqueue(ctx context.Context, job ledger.SettlementJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, settlementKey, data).Err()
}

func (q *RedisSettlementQueue) Dequeue(ctx context.Context) (*ledger.SettlementJob, error) {
	data, err := q.client.LPop(ctx, settlementKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job ledger.SettlementJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settlement job: %w", err)
	}
	return &job, nil
}
