package services

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/fortebank/backend/internal/ledger"
	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/store"
	"github.com/go-chi/chi/v5"
)

// AccountService exposes deposits, withdrawals and read-only balance/ledger
// queries over the ledger core.
type AccountService struct {
	poster    ledger.Poster
	accounts  store.AccountStore
	entries   store.TransactionStore
	validator *ValidationHelper
}

func NewAccountService(poster ledger.Poster, accounts store.AccountStore, entries store.TransactionStore) *AccountService {
	return &AccountService{
		poster:    poster,
		accounts:  accounts,
		entries:   entries,
		validator: NewValidationHelper(),
	}
}

type postingRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=200"`
}

type postingResponse struct {
	Success     bool                `json:"success"`
	Transaction *models.Transaction `json:"transaction"`
}

// Deposit credits an account
// @Summary Deposit funds
// @Description Credit an account and write the matching ledger entry
// @Tags accounts
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param deposit body postingRequest true "Deposit data"
// @Success 201 {object} postingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /accounts/{accountId}/deposit [post]
func (s *AccountService) Deposit(w http.ResponseWriter, r *http.Request) {
	s.post(w, r, models.Credit, models.SubtypeDeposit)
}

// Withdraw debits an account
// @Summary Withdraw funds
// @Description Debit an account; fails on insufficient funds
// @Tags accounts
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param withdrawal body postingRequest true "Withdrawal data"
// @Success 201 {object} postingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /accounts/{accountId}/withdraw [post]
func (s *AccountService) Withdraw(w http.ResponseWriter, r *http.Request) {
	s.post(w, r, models.Debit, models.SubtypeWithdrawal)
}

func (s *AccountService) post(w http.ResponseWriter, r *http.Request, direction models.EntryType, subtype string) {
	accountID := chi.URLParam(r, "accountId")

	var req postingRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := s.poster.Post(r.Context(), ledger.PostRequest{
		AccountID:   accountID,
		Type:        direction,
		Amount:      req.Amount,
		Subtype:     subtype,
		Description: req.Description,
	})
	if err != nil {
		log.Printf("[ACCOUNT] %s of %d on %s failed: %v", subtype, req.Amount, accountID, err)
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(postingResponse{Success: true, Transaction: entry})
}

// GetBalance returns the current balance
// @Summary Get account balance
// @Description Retrieve the current balance and status for an account
// @Tags accounts
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} object{accountId=string,balance=int64,status=string}
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountId}/balance [get]
func (s *AccountService) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	account, err := s.accounts.GetForUpdate(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		SendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accountId": account.ID,
		"balance":   account.Balance,
		"status":    account.Status,
	})
}

// ListTransactions returns the account ledger, newest first
// @Summary List account transactions
// @Description Page through an account's ledger entries
// @Tags accounts
// @Produce json
// @Param accountId path string true "Account ID"
// @Param limit query int false "Page size (default 50, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Failure 500 {object} ErrorResponse
// @Router /accounts/{accountId}/transactions [get]
func (s *AccountService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o > 0 {
		offset = o
	}

	transactions, err := s.entries.ListByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		log.Printf("[ACCOUNT] failed to list transactions for %s: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// ResolveAccountNumber resolves an account number to its account
// @Summary Resolve account number
// @Description Look up an account by its externally visible account number
// @Tags accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} object{accountId=string,accountNumber=string,status=string}
// @Failure 404 {object} ErrorResponse
// @Router /accounts/number/{accountNumber} [get]
func (s *AccountService) ResolveAccountNumber(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")

	account, err := s.accounts.FindByAccountNumber(r.Context(), accountNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		SendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		return
	}
	if !account.CanTransact() {
		SendErrorResponse(w, "Account not active", http.StatusForbidden, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accountId":     account.ID,
		"accountNumber": account.AccountNumber,
		"status":        account.Status,
	})
}
