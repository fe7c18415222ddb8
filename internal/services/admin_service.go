package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/fortebank/backend/internal/ledger"
	"github.com/fortebank/backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// BalanceAdjuster is the slice of the ledger adjuster the handler needs.
type BalanceAdjuster interface {
	Adjust(ctx context.Context, accountID string, op ledger.AdjustOperation, amount int64, description string) (*models.Transaction, error)
}

type AdminService struct {
	adjuster  BalanceAdjuster
	validator *ValidationHelper
}

func NewAdminService(adjuster BalanceAdjuster) *AdminService {
	return &AdminService{
		adjuster:  adjuster,
		validator: NewValidationHelper(),
	}
}

type adjustRequest struct {
	Operation   string `json:"operation" validate:"required,oneof=set add subtract"`
	Amount      int64  `json:"amount" validate:"gte=0"`
	Description string `json:"description" validate:"max=200"`
}

// AdjustBalance applies an administrative balance adjustment
// @Summary Adjust account balance
// @Description Set, add to, or subtract from an account balance; subtract clamps at zero
// @Tags admin
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param adjustment body adjustRequest true "Adjustment"
// @Success 200 {object} object{success=bool,adjusted=bool,transaction=models.Transaction}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/accounts/{accountId}/adjust [post]
func (s *AdminService) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	var req adjustRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	op := ledger.AdjustOperation(req.Operation)
	if op != ledger.AdjustSet && req.Amount == 0 {
		SendErrorResponse(w, "amount must be positive", http.StatusBadRequest, nil)
		return
	}

	entry, err := s.adjuster.Adjust(r.Context(), accountID, op, req.Amount, req.Description)
	if err != nil {
		log.Printf("[ADMIN] %s adjustment of %d on %s failed: %v", req.Operation, req.Amount, accountID, err)
		SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"adjusted":    entry != nil,
		"transaction": entry,
	})
}
