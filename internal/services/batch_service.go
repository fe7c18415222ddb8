package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/queue"
	"github.com/google/uuid"
)

// PostingPublisher is the slice of the queue the batch handler needs.
type PostingPublisher interface {
	PublishPosting(ctx context.Context, msg queue.PostingMessage) error
}

// BatchService validates bulk posting requests and hands them to the
// asynchronous posting pipeline; the worker applies them through the ledger
// writer one by one.
type BatchService struct {
	publisher PostingPublisher
	validator *ValidationHelper
}

func NewBatchService(publisher PostingPublisher) *BatchService {
	return &BatchService{
		publisher: publisher,
		validator: NewValidationHelper(),
	}
}

type batchPosting struct {
	AccountID   string `json:"accountId" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=credit debit"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Subtype     string `json:"subtype" validate:"required,oneof=deposit withdrawal admin_adjust"`
	Reference   string `json:"reference"`
	Description string `json:"description" validate:"max=200"`
}

type batchRequest struct {
	Postings []batchPosting `json:"postings" validate:"required,min=1,max=100,dive"`
}

// BatchPostings queues a batch of ledger postings
// @Summary Queue batch postings
// @Description Validate up to 100 postings and queue them for asynchronous processing
// @Tags transactions
// @Accept json
// @Produce json
// @Param batch body batchRequest true "Batch posting data"
// @Success 202 {object} object{queued=[]string,failed=[]object,summary=object}
// @Failure 400 {object} ErrorResponse
// @Router /transactions/batch [post]
func (s *BatchService) BatchPostings(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	queued := []string{}
	failed := []map[string]any{}

	for _, posting := range req.Postings {
		reference := posting.Reference
		if reference == "" {
			reference = "TXN-" + uuid.New().String()
		}

		msg := queue.PostingMessage{
			AccountID:   posting.AccountID,
			Type:        models.EntryType(posting.Type),
			Amount:      posting.Amount,
			Subtype:     posting.Subtype,
			Reference:   reference,
			Description: posting.Description,
		}
		if err := s.publisher.PublishPosting(r.Context(), msg); err != nil {
			log.Printf("[BATCH] failed to queue posting %s: %v", reference, err)
			failed = append(failed, map[string]any{
				"reference": reference,
				"error":     "failed to queue posting",
			})
			continue
		}
		queued = append(queued, reference)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"queued": queued,
		"failed": failed,
		"summary": map[string]int{
			"total":  len(req.Postings),
			"queued": len(queued),
			"failed": len(failed),
		},
	})
}
