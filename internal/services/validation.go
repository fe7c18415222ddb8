package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fortebank/backend/internal/ledger"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// DecodeJSONBody decodes a single JSON object into dst with a 1 MB cap and
// unknown fields rejected.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must only contain a single JSON object")
	}
	return nil
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var validationErrs validator.ValidationErrors
	if errors.As(validationErr, &validationErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendLedgerError maps a typed ledger error to an HTTP response. Funds and
// recipient errors are safe to show verbatim; concurrency and inconsistency
// failures get a generic message rather than internal detail.
func SendLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		SendErrorResponse(w, ledger.ErrInvalidAmount.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, ledger.ErrSameAccount):
		SendErrorResponse(w, ledger.ErrSameAccount.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		SendErrorResponse(w, ledger.ErrInsufficientFunds.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, ledger.ErrAccountUnavailable):
		SendErrorResponse(w, "account is not available for transactions", http.StatusForbidden, nil)
	case errors.Is(err, ledger.ErrRecipientNotFound):
		SendErrorResponse(w, ledger.ErrRecipientNotFound.Error(), http.StatusNotFound, nil)
	case errors.Is(err, ledger.ErrConcurrencyExhausted):
		SendErrorResponse(w, "the account is busy, please try again", http.StatusServiceUnavailable, nil)
	case errors.Is(err, ledger.ErrLedgerInconsistency), errors.Is(err, ledger.ErrTransferPartialFailure):
		SendErrorResponse(w, "the operation could not be completed, please contact support", http.StatusInternalServerError, nil)
	default:
		SendErrorResponse(w, "failed to process request", http.StatusInternalServerError, nil)
	}
}
