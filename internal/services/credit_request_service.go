package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fetchgo/admin-backend/internal/config"
	"github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// CreditRequestService resolves rider top-up claims. Approval credits the
// ledger and marks the request in one transaction; the status guard on the
// UPDATE makes re-approving a resolved request impossible.
type CreditRequestService struct {
	db        *sql.DB
	redis     *redis.Client
	ledger    *CreditLedgerService
	cfg       *config.PlatformConfig
	validator *ValidationHelper
}

func NewCreditRequestService(db *sql.DB, redisClient *redis.Client, ledger *CreditLedgerService, cfg *config.PlatformConfig) *CreditRequestService {
	return &CreditRequestService{
		db:        db,
		redis:     redisClient,
		ledger:    ledger,
		cfg:       cfg,
		validator: NewValidationHelper(),
	}
}

// RequestListResponse is the polling payload for the admin console, which
// refreshes the list on a fixed interval.
type RequestListResponse struct {
	Requests    []models.CreditRequest `json:"requests"`
	LastUpdated time.Time              `json:"lastUpdated"`
}

type submitRequestPayload struct {
	PhoneKey       string `json:"phoneKey" validate:"required,min=10,max=13"`
	GcashReference string `json:"gcashReference" validate:"required,min=4"`
}

type approveRequestPayload struct {
	Amount    float64 `json:"amount" validate:"required,gt=0" example:"50.00"`
	AdminNote string  `json:"adminNote,omitempty"`
}

// ListRequests lists credit requests
// @Summary List credit requests
// @Description List top-up requests, newest first. Snapshots are cached briefly to absorb console polling.
// @Tags credit-requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved, rejected or all" default(pending)
// @Success 200 {object} RequestListResponse
// @Router /credit-requests [get]
func (s *CreditRequestService) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.RequestStatusPending
	}

	switch status {
	case models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected, "all":
	default:
		SendErrorResponse(w, "Invalid status filter", http.StatusBadRequest, nil)
		return
	}

	if cached := s.cachedList(r.Context(), status); cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	query := `
		SELECT id, phone_key, gcash_reference, status, created_at,
		       approved_amount, approved_at, rejected_at, admin_note
		FROM credit_requests`
	var args []interface{}
	if status != "all" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Printf("[REQUEST] Failed to list credit requests: %v", err)
		SendErrorResponse(w, "Failed to fetch credit requests", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	requests := []models.CreditRequest{}
	for rows.Next() {
		var req models.CreditRequest
		if err := rows.Scan(&req.ID, &req.PhoneKey, &req.GcashReference, &req.Status,
			&req.CreatedAt, &req.ApprovedAmount, &req.ApprovedAt, &req.RejectedAt,
			&req.AdminNote); err != nil {
			log.Printf("[REQUEST] Failed to scan credit request row: %v", err)
			SendErrorResponse(w, "Failed to fetch credit requests", http.StatusInternalServerError, nil)
			return
		}
		requests = append(requests, req)
	}

	response := RequestListResponse{Requests: requests, LastUpdated: time.Now()}
	payload, err := json.Marshal(response)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch credit requests", http.StatusInternalServerError, nil)
		return
	}

	s.storeList(r.Context(), status, payload)

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// SubmitRequest ingests a top-up claim from the rider app
// @Summary Submit credit request
// @Tags credit-requests
// @Accept json
// @Produce json
// @Param request body submitRequestPayload true "Top-up claim"
// @Success 201 {object} models.CreditRequest
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /credit-requests [post]
func (s *CreditRequestService) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var payload submitRequestPayload
	if err := dec.Decode(&payload); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&payload); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM riders WHERE phone_number = $1)`,
		payload.PhoneKey).Scan(&exists); err != nil {
		log.Printf("[REQUEST] Rider lookup failed for %s: %v", payload.PhoneKey, err)
		SendErrorResponse(w, "Failed to submit request", http.StatusInternalServerError, nil)
		return
	}
	if !exists {
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}

	request := models.CreditRequest{
		ID:             uuid.NewString(),
		PhoneKey:       payload.PhoneKey,
		GcashReference: payload.GcashReference,
		Status:         models.RequestStatusPending,
		CreatedAt:      time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO credit_requests (id, phone_key, gcash_reference, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		request.ID, request.PhoneKey, request.GcashReference, request.Status, request.CreatedAt)
	if err != nil {
		log.Printf("[REQUEST] Failed to insert credit request for %s: %v", payload.PhoneKey, err)
		SendErrorResponse(w, "Failed to submit request", http.StatusInternalServerError, nil)
		return
	}

	s.invalidateLists(r.Context())

	log.Printf("[REQUEST] Credit request %s submitted for %s", request.ID, request.PhoneKey)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(request)
}

// ApproveRequest approves a pending request and credits the rider
// @Summary Approve credit request
// @Description Mark the request approved and credit the rider's ledger in one transaction
// @Tags credit-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request id"
// @Param request body approveRequestPayload true "Approved amount"
// @Success 200 {object} models.CreditRequest
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /credit-requests/{id}/approve [post]
func (s *CreditRequestService) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	adminEmail := middleware.AdminEmail(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var payload approveRequestPayload
	if err := dec.Decode(&payload); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&payload); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if payload.Amount > s.cfg.MaxCreditPerApproval {
		SendErrorResponse(w, fmt.Sprintf("Amount exceeds the per-approval limit of %.2f", s.cfg.MaxCreditPerApproval),
			http.StatusBadRequest, nil)
		return
	}

	if payload.AdminNote == "" {
		payload.AdminNote = fmt.Sprintf("Approved credit of %.2f", payload.Amount)
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[REQUEST] Failed to begin approval transaction: %v", err)
		SendErrorResponse(w, "Failed to approve request", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	now := time.Now()

	// The status predicate is the terminal-state guard: a request can only
	// move out of pending once, no matter how many admins click approve.
	var request models.CreditRequest
	err = tx.QueryRow(`
		UPDATE credit_requests
		SET status = $1, approved_amount = $2, approved_at = $3, admin_note = $4
		WHERE id = $5 AND status = $6
		RETURNING id, phone_key, gcash_reference, status, created_at, approved_amount, approved_at, rejected_at, admin_note`,
		models.RequestStatusApproved, payload.Amount, now, payload.AdminNote,
		requestID, models.RequestStatusPending).Scan(&request.ID, &request.PhoneKey,
		&request.GcashReference, &request.Status, &request.CreatedAt,
		&request.ApprovedAmount, &request.ApprovedAt, &request.RejectedAt, &request.AdminNote)
	if err == sql.ErrNoRows {
		s.sendResolutionConflict(w, requestID)
		return
	}
	if err != nil {
		log.Printf("[REQUEST] Failed to mark request %s approved: %v", requestID, err)
		SendErrorResponse(w, "Failed to approve request", http.StatusInternalServerError, nil)
		return
	}

	if _, err := s.ledger.AddCreditTx(tx, request.PhoneKey, payload.Amount, adminEmail,
		models.CreditSourceRequest, request.ID); err != nil {
		if err == ErrRiderNotFound {
			SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[REQUEST] Failed to credit rider %s for request %s: %v", request.PhoneKey, requestID, err)
		SendErrorResponse(w, "Failed to approve request", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[REQUEST] Failed to commit approval of %s: %v", requestID, err)
		SendErrorResponse(w, "Failed to approve request", http.StatusInternalServerError, nil)
		return
	}

	s.invalidateLists(r.Context())

	log.Printf("[REQUEST] Request %s approved for %.2f by %s", requestID, payload.Amount, adminEmail)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

// RejectRequest rejects a pending request
// @Summary Reject credit request
// @Description Mark the request rejected; the rider's balance is untouched
// @Tags credit-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request id"
// @Param request body object{adminNote=string} false "Optional note"
// @Success 200 {object} models.CreditRequest
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /credit-requests/{id}/reject [post]
func (s *CreditRequestService) RejectRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	adminEmail := middleware.AdminEmail(r.Context())

	var payload struct {
		AdminNote string `json:"adminNote"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&payload)
	}
	if payload.AdminNote == "" {
		payload.AdminNote = "Credit request rejected by admin"
	}

	var request models.CreditRequest
	err := s.db.QueryRow(`
		UPDATE credit_requests
		SET status = $1, rejected_at = $2, admin_note = $3
		WHERE id = $4 AND status = $5
		RETURNING id, phone_key, gcash_reference, status, created_at, approved_amount, approved_at, rejected_at, admin_note`,
		models.RequestStatusRejected, time.Now(), payload.AdminNote,
		requestID, models.RequestStatusPending).Scan(&request.ID, &request.PhoneKey,
		&request.GcashReference, &request.Status, &request.CreatedAt,
		&request.ApprovedAmount, &request.ApprovedAt, &request.RejectedAt, &request.AdminNote)
	if err == sql.ErrNoRows {
		s.sendResolutionConflict(w, requestID)
		return
	}
	if err != nil {
		log.Printf("[REQUEST] Failed to reject request %s: %v", requestID, err)
		SendErrorResponse(w, "Failed to reject request", http.StatusInternalServerError, nil)
		return
	}

	s.invalidateLists(r.Context())

	log.Printf("[REQUEST] Request %s rejected by %s", requestID, adminEmail)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

// sendResolutionConflict distinguishes a missing request from one already in
// a terminal state.
func (s *CreditRequestService) sendResolutionConflict(w http.ResponseWriter, requestID string) {
	var status string
	err := s.db.QueryRow(`SELECT status FROM credit_requests WHERE id = $1`, requestID).Scan(&status)
	if err != nil {
		SendErrorResponse(w, "Credit request not found", http.StatusNotFound, nil)
		return
	}
	SendErrorResponse(w, "Credit request already "+status, http.StatusConflict, nil)
}

func (s *CreditRequestService) cachedList(ctx context.Context, status string) []byte {
	if s.redis == nil {
		return nil
	}
	payload, err := s.redis.Get(ctx, "credit_requests:"+status).Bytes()
	if err != nil {
		return nil
	}
	return payload
}

func (s *CreditRequestService) storeList(ctx context.Context, status string, payload []byte) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, "credit_requests:"+status, payload, s.cfg.RequestListCacheTTL).Err(); err != nil {
		log.Printf("[REQUEST] Failed to cache %s list: %v", status, err)
	}
}

func (s *CreditRequestService) invalidateLists(ctx context.Context) {
	if s.redis == nil {
		return
	}
	keys := []string{
		"credit_requests:pending",
		"credit_requests:approved",
		"credit_requests:rejected",
		"credit_requests:all",
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[REQUEST] Failed to invalidate list cache: %v", err)
	}
}
