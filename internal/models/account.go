package models

import (
	"time"
)

// AccountStatus gates balance-mutating operations. Only ACTIVE accounts
// accept new postings.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountClosed    AccountStatus = "closed"
)

type Account struct {
	ID            string        `json:"id" db:"id"`
	AccountNumber string        `json:"account_number" db:"account_number"`
	RoutingNumber string        `json:"routing_number" db:"routing_number"`
	Balance       int64         `json:"balance" db:"balance"` // in minor units
	Status        AccountStatus `json:"status" db:"status"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// CanTransact reports whether the account accepts new postings.
func (a *Account) CanTransact() bool {
	return a.Status == AccountActive
}
