package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

var (
	ErrRiderNotFound       = errors.New("rider not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// CreditLedgerService owns every mutation of a rider's credit balance. The
// rider row and the ledger row are always written inside one database
// transaction, so the balance can never drift from its history.
type CreditLedgerService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewCreditLedgerService(db *sql.DB) *CreditLedgerService {
	return &CreditLedgerService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

type creditAmountRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0" example:"50.00"`
}

// AddCredit credits a rider's balance
// @Summary Add credit to a rider
// @Description Credit a rider's prepaid balance and append a ledger entry
// @Tags credit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Param request body creditAmountRequest true "Amount in pesos"
// @Success 200 {object} models.CreditTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /riders/{phone}/credit/add [post]
func (s *CreditLedgerService) AddCredit(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	adminEmail := middleware.AdminEmail(r.Context())

	req, ok := s.decodeAmount(w, r)
	if !ok {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[CREDIT] Failed to begin transaction: %v", err)
		SendErrorResponse(w, "Failed to add credit", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	entry, err := s.AddCreditTx(tx, phone, req.Amount, adminEmail, models.CreditSourceManual, "")
	if err != nil {
		s.sendLedgerError(w, phone, err)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[CREDIT] Failed to commit add for %s: %v", phone, err)
		SendErrorResponse(w, "Failed to add credit", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[CREDIT] Added %.2f to %s by %s (balance %.2f)", req.Amount, phone, adminEmail, entry.NewBalance)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// DeductCredit debits a rider's balance
// @Summary Deduct credit from a rider
// @Description Debit a rider's prepaid balance; rejected when the amount exceeds the current balance
// @Tags credit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Param request body creditAmountRequest true "Amount in pesos"
// @Success 200 {object} models.CreditTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /riders/{phone}/credit/deduct [post]
func (s *CreditLedgerService) DeductCredit(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	adminEmail := middleware.AdminEmail(r.Context())

	req, ok := s.decodeAmount(w, r)
	if !ok {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[CREDIT] Failed to begin transaction: %v", err)
		SendErrorResponse(w, "Failed to deduct credit", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	entry, err := s.DeductCreditTx(tx, phone, req.Amount, adminEmail)
	if err != nil {
		s.sendLedgerError(w, phone, err)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[CREDIT] Failed to commit deduct for %s: %v", phone, err)
		SendErrorResponse(w, "Failed to deduct credit", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[CREDIT] Deducted %.2f from %s by %s (balance %.2f)", req.Amount, phone, adminEmail, entry.NewBalance)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// GetHistory lists a rider's credit transactions
// @Summary Credit history
// @Description List a rider's balance-changing transactions, newest first
// @Tags credit
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Success 200 {array} models.CreditTransaction
// @Router /riders/{phone}/credit/history [get]
func (s *CreditLedgerService) GetHistory(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	rows, err := s.db.Query(`
		SELECT id, rider_phone_number, type, amount, previous_balance, new_balance,
		       admin_email, source, related_request_id, created_at
		FROM credit_transactions
		WHERE rider_phone_number = $1
		ORDER BY created_at DESC, id DESC`, phone)
	if err != nil {
		log.Printf("[CREDIT] Failed to fetch history for %s: %v", phone, err)
		SendErrorResponse(w, "Failed to fetch credit history", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	history := []models.CreditTransaction{}
	for rows.Next() {
		var entry models.CreditTransaction
		if err := rows.Scan(&entry.ID, &entry.RiderPhoneNumber, &entry.Type, &entry.Amount,
			&entry.PreviousBalance, &entry.NewBalance, &entry.AdminEmail,
			&entry.Source, &entry.RelatedRequestID, &entry.CreatedAt); err != nil {
			log.Printf("[CREDIT] Failed to scan history row: %v", err)
			SendErrorResponse(w, "Failed to fetch credit history", http.StatusInternalServerError, nil)
			return
		}
		history = append(history, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

// Reconcile recomputes a rider's balance from the ledger
// @Summary Reconcile rider balance
// @Description Compare the rider's balance field against the signed sum of ledger entries
// @Tags credit
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /riders/{phone}/credit/reconcile [get]
func (s *CreditLedgerService) Reconcile(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	var balance float64
	err := s.db.QueryRow(`SELECT credit FROM riders WHERE phone_number = $1`, phone).Scan(&balance)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[CREDIT] Reconcile lookup failed for %s: %v", phone, err)
		SendErrorResponse(w, "Failed to reconcile", http.StatusInternalServerError, nil)
		return
	}

	var ledgerSum float64
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN type = 'add' THEN amount ELSE -amount END), 0)
		FROM credit_transactions
		WHERE rider_phone_number = $1`, phone).Scan(&ledgerSum)
	if err != nil {
		log.Printf("[CREDIT] Reconcile sum failed for %s: %v", phone, err)
		SendErrorResponse(w, "Failed to reconcile", http.StatusInternalServerError, nil)
		return
	}

	// Half a centavo absorbs float noise from NUMERIC scans.
	drift := balance - ledgerSum
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"phoneNumber": phone,
		"balance":     balance,
		"ledgerSum":   ledgerSum,
		"drift":       drift,
		"consistent":  math.Abs(drift) < 0.005,
	})
}

// AddCreditTx credits the rider inside the caller's transaction and appends
// the ledger entry. Used directly by the manual add and by credit request
// approval, which tags the entry with its source and request id.
func (s *CreditLedgerService) AddCreditTx(tx *sql.Tx, phone string, amount float64, adminEmail, source, relatedRequestID string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	balance, err := s.lockRider(tx, phone)
	if err != nil {
		return nil, err
	}

	return s.applyTx(tx, &models.CreditTransaction{
		RiderPhoneNumber: phone,
		Type:             models.CreditTxAdd,
		Amount:           amount,
		PreviousBalance:  balance,
		NewBalance:       balance + amount,
		AdminEmail:       adminEmail,
		Source:           source,
		RelatedRequestID: relatedRequestID,
	})
}

// DeductCreditTx debits the rider inside the caller's transaction. The limit
// check runs against the locked row, not a stale snapshot.
func (s *CreditLedgerService) DeductCreditTx(tx *sql.Tx, phone string, amount float64, adminEmail string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	balance, err := s.lockRider(tx, phone)
	if err != nil {
		return nil, err
	}

	if amount > balance {
		return nil, ErrInsufficientBalance
	}

	return s.applyTx(tx, &models.CreditTransaction{
		RiderPhoneNumber: phone,
		Type:             models.CreditTxDeduct,
		Amount:           amount,
		PreviousBalance:  balance,
		NewBalance:       balance - amount,
		AdminEmail:       adminEmail,
		Source:           models.CreditSourceManual,
	})
}

func (s *CreditLedgerService) lockRider(tx *sql.Tx, phone string) (float64, error) {
	var balance float64
	err := tx.QueryRow(`
		SELECT credit FROM riders
		WHERE phone_number = $1
		FOR UPDATE`, phone).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrRiderNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *CreditLedgerService) applyTx(tx *sql.Tx, entry *models.CreditTransaction) (*models.CreditTransaction, error) {
	now := time.Now()
	entry.CreatedAt = now

	_, err := tx.Exec(`
		UPDATE riders
		SET credit = $1, last_credit_update = $2
		WHERE phone_number = $3`,
		entry.NewBalance, now, entry.RiderPhoneNumber)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(`
		INSERT INTO credit_transactions
		(rider_phone_number, type, amount, previous_balance, new_balance, admin_email, source, related_request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		entry.RiderPhoneNumber, entry.Type, entry.Amount, entry.PreviousBalance,
		entry.NewBalance, entry.AdminEmail, entry.Source, entry.RelatedRequestID, now).Scan(&entry.ID)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *CreditLedgerService) decodeAmount(w http.ResponseWriter, r *http.Request) (*creditAmountRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req creditAmountRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return nil, false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return nil, false
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return nil, false
	}

	return &req, true
}

func (s *CreditLedgerService) sendLedgerError(w http.ResponseWriter, phone string, err error) {
	switch {
	case errors.Is(err, ErrRiderNotFound):
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrInsufficientBalance):
		SendErrorResponse(w, "Insufficient balance", http.StatusUnprocessableEntity, nil)
	default:
		log.Printf("[CREDIT] Ledger operation failed for %s: %v", phone, err)
		SendErrorResponse(w, "Failed to update credit", http.StatusInternalServerError, nil)
	}
}
