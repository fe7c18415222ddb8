package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortebank/backend/internal/models"
	"github.com/google/uuid"
)

// PostgresAccountStore implements AccountStore over database/sql.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) GetForUpdate(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_number, routing_number, balance, status, updated_at
		FROM accounts
		WHERE id = $1`, accountID).Scan(
		&account.ID, &account.AccountNumber, &account.RoutingNumber,
		&account.Balance, &account.Status, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", accountID, err)
	}
	return &account, nil
}

func (s *PostgresAccountStore) CompareAndSetBalance(ctx context.Context, accountID string, expected, newBalance int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3 AND balance = $4`,
		newBalance, time.Now(), accountID, expected)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", accountID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Either a concurrent writer moved the balance or the row is gone;
		// the fresh read on retry distinguishes the two.
		return ErrConflict
	}
	return nil
}

func (s *PostgresAccountStore) FindByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_number, routing_number, balance, status, updated_at
		FROM accounts
		WHERE account_number = $1`, accountNumber).Scan(
		&account.ID, &account.AccountNumber, &account.RoutingNumber,
		&account.Balance, &account.Status, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountNumber, err)
	}
	return &account, nil
}

// PostgresTransactionStore implements TransactionStore.
type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db}
}

func (s *PostgresTransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, account_id, type, subtype, amount, status, balance_after, reference, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.AccountID, tx.Type, tx.Subtype, tx.Amount, tx.Status,
		tx.BalanceAfter, tx.Reference, tx.Description, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresTransactionStore) FindByReference(ctx context.Context, accountID, reference, subtype string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, type, subtype, amount, status, balance_after, reference, description, created_at, updated_at
		FROM transactions
		WHERE account_id = $1 AND reference = $2 AND subtype = $3
		LIMIT 1`, accountID, reference, subtype).Scan(
		&tx.ID, &tx.AccountID, &tx.Type, &tx.Subtype, &tx.Amount, &tx.Status,
		&tx.BalanceAfter, &tx.Reference, &tx.Description, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry by reference %s: %w", reference, err)
	}
	return &tx, nil
}

func (s *PostgresTransactionStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, type, subtype, amount, status, balance_after, reference, description, created_at, updated_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		err := rows.Scan(
			&tx.ID, &tx.AccountID, &tx.Type, &tx.Subtype, &tx.Amount, &tx.Status,
			&tx.BalanceAfter, &tx.Reference, &tx.Description, &tx.CreatedAt, &tx.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
