package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"time"

	"github.com/fortebank/backend/internal/store"
	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

const paymentRequestTTL = 5 * time.Minute

// PaymentRequestService issues single-use QR payment requests: a recipient
// account number plus amount, cached with a TTL and claimable exactly once
// by the paying side.
type PaymentRequestService struct {
	redis     *redis.Client
	accounts  store.AccountStore
	validator *ValidationHelper
}

func NewPaymentRequestService(redisClient *redis.Client, accounts store.AccountStore) *PaymentRequestService {
	return &PaymentRequestService{
		redis:     redisClient,
		accounts:  accounts,
		validator: NewValidationHelper(),
	}
}

type paymentRequestBody struct {
	AccountNumber string `json:"accountNumber" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
}

type claimRequestBody struct {
	Code string `json:"code" validate:"required"`
}

// CreatePaymentRequest generates a QR payment request
// @Summary Create payment request
// @Description Generate a single-use QR code requesting a payment to an account
// @Tags payment-requests
// @Accept json
// @Produce json
// @Param request body paymentRequestBody true "Payment request"
// @Success 201 {object} object{code=string,qrImage=string,expiresIn=int}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /payment-requests [post]
func (s *PaymentRequestService) CreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	var req paymentRequestBody
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := s.accounts.FindByAccountNumber(r.Context(), req.AccountNumber)
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

	code, qrImage, err := s.generate(r.Context(), account.AccountNumber, req.Amount)
	if err != nil {
		SendErrorResponse(w, "Failed to generate payment request", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"code":      code,
		"qrImage":   qrImage,
		"expiresIn": int(paymentRequestTTL.Seconds()),
	})
}

// ClaimPaymentRequest resolves and consumes a payment request
// @Summary Claim payment request
// @Description Resolve a QR payment request; a code can be claimed only once
// @Tags payment-requests
// @Accept json
// @Produce json
// @Param claim body claimRequestBody true "Claim"
// @Success 200 {object} object{accountNumber=string,amount=int64}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /payment-requests/claim [post]
func (s *PaymentRequestService) ClaimPaymentRequest(w http.ResponseWriter, r *http.Request) {
	var req claimRequestBody
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	details, err := s.claim(r.Context(), req.Code)
	if err != nil {
		SendErrorResponse(w, "Invalid or expired payment request", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

func (s *PaymentRequestService) generate(ctx context.Context, accountNumber string, amount int64) (string, string, error) {
	payload := map[string]any{
		"accountNumber": accountNumber,
		"amount":        amount,
		"timestamp":     time.Now().Unix(),
		"nonce":         generateNonce(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("payreq:%s", code)
	if err := s.redis.Set(ctx, key, jsonData, paymentRequestTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return code, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *PaymentRequestService) claim(ctx context.Context, code string) (map[string]any, error) {
	key := fmt.Sprintf("payreq:%s", code)

	// GETDEL so two racing claims cannot both resolve the code.
	data, err := s.redis.GetDel(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired payment request")
	}
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
