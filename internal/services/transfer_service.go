package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/fortebank/backend/internal/models"
)

// Transferor is the slice of the transfer orchestrator the handler needs.
type Transferor interface {
	Transfer(ctx context.Context, fromAccountID, toAccountNumber string, amount int64, transferType models.TransferType, description string) (string, error)
}

type TransferService struct {
	transferor Transferor
	validator  *ValidationHelper
}

func NewTransferService(transferor Transferor) *TransferService {
	return &TransferService{
		transferor: transferor,
		validator:  NewValidationHelper(),
	}
}

type transferRequest struct {
	FromAccountID   string `json:"fromAccountId" validate:"required"`
	ToAccountNumber string `json:"toAccountNumber" validate:"required"`
	Amount          int64  `json:"amount" validate:"required,gt=0"`
	TransferType    string `json:"transferType" validate:"required,oneof=domestic international"`
	Description     string `json:"description" validate:"max=200"`
}

// CreateTransfer moves funds between two accounts
// @Summary Transfer funds
// @Description Debit the sender (amount plus any international fee) and credit the recipient as one logical operation
// @Tags transfers
// @Accept json
// @Produce json
// @Param transfer body transferRequest true "Transfer details"
// @Success 201 {object} object{success=bool,reference=string}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /transfers [post]
func (s *TransferService) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	reference, err := s.transferor.Transfer(
		r.Context(),
		req.FromAccountID,
		req.ToAccountNumber,
		req.Amount,
		models.TransferType(req.TransferType),
		req.Description,
	)
	if err != nil {
		log.Printf("[TRANSFER] %s -> %s of %d failed: %v", req.FromAccountID, req.ToAccountNumber, req.Amount, err)
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"reference": reference,
	})
}
