package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
)

// RiderService handles the rider directory: pending applications, the
// approved pool and its status transitions.
type RiderService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewRiderService(db *sql.DB) *RiderService {
	return &RiderService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// ApplicationRequest is the intake payload from the rider app.
type ApplicationRequest struct {
	FullName        string `json:"fullName" validate:"required,min=2"`
	PhoneNumber     string `json:"phoneNumber" validate:"required,min=10,max=13"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ProfileImage    string `json:"profileImage,omitempty"`
	OrcrImage       string `json:"orcrImage,omitempty"`
	LicenseImage    string `json:"licenseImage,omitempty"`
	SelfieImage     string `json:"selfieImage,omitempty"`
	MotorcycleImage string `json:"motorcycleImage,omitempty"`
}

// ListRiders lists approved and suspended riders
// @Summary List riders
// @Description List riders sorted by approval date, optionally filtered by status
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param filter query string false "all, active or suspended" default(all)
// @Success 200 {array} models.RiderAccount
// @Router /riders [get]
func (s *RiderService) ListRiders(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")

	query := `
		SELECT phone_number, full_name, email, profile_image, orcr_image, license_image,
		       selfie_image, motorcycle_image, status, credit, created_at, approved_at,
		       suspended_at, restored_at, last_credit_update
		FROM riders`
	var args []interface{}

	switch filter {
	case "active":
		query += ` WHERE status = $1`
		args = append(args, models.RiderStatusApproved)
	case "suspended":
		query += ` WHERE status = $1`
		args = append(args, models.RiderStatusSuspended)
	case "", "all":
		// no filter
	default:
		SendErrorResponse(w, "Invalid filter", http.StatusBadRequest, nil)
		return
	}
	query += ` ORDER BY approved_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Printf("[RIDER] Failed to list riders: %v", err)
		SendErrorResponse(w, "Failed to fetch riders", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	riders := []models.RiderAccount{}
	for rows.Next() {
		rider, err := scanRider(rows)
		if err != nil {
			log.Printf("[RIDER] Failed to scan rider row: %v", err)
			SendErrorResponse(w, "Failed to fetch riders", http.StatusInternalServerError, nil)
			return
		}
		riders = append(riders, *rider)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(riders)
}

// GetRider returns one rider with document URIs
// @Summary Get rider
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Success 200 {object} models.RiderAccount
// @Failure 404 {object} ErrorResponse
// @Router /riders/{phone} [get]
func (s *RiderService) GetRider(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	row := s.db.QueryRow(`
		SELECT phone_number, full_name, email, profile_image, orcr_image, license_image,
		       selfie_image, motorcycle_image, status, credit, created_at, approved_at,
		       suspended_at, restored_at, last_credit_update
		FROM riders
		WHERE phone_number = $1`, phone)

	rider, err := scanRider(row)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[RIDER] Failed to fetch rider %s: %v", phone, err)
		SendErrorResponse(w, "Failed to fetch rider", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rider)
}

// ListApplications lists pending registrations
// @Summary List pending rider applications
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.RiderApplication
// @Router /riders/applications [get]
func (s *RiderService) ListApplications(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT phone_number, full_name, email, profile_image, orcr_image, license_image,
		       selfie_image, motorcycle_image, created_at
		FROM rider_applications
		ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("[RIDER] Failed to list applications: %v", err)
		SendErrorResponse(w, "Failed to fetch applications", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	applications := []models.RiderApplication{}
	for rows.Next() {
		var app models.RiderApplication
		if err := rows.Scan(&app.PhoneNumber, &app.FullName, &app.Email, &app.ProfileImage,
			&app.OrcrImage, &app.LicenseImage, &app.SelfieImage, &app.MotorcycleImage,
			&app.CreatedAt); err != nil {
			log.Printf("[RIDER] Failed to scan application row: %v", err)
			SendErrorResponse(w, "Failed to fetch applications", http.StatusInternalServerError, nil)
			return
		}
		applications = append(applications, app)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(applications)
}

// SubmitApplication ingests a registration from the rider app
// @Summary Submit rider application
// @Description Create a pending rider registration awaiting admin review
// @Tags riders
// @Accept json
// @Produce json
// @Param request body ApplicationRequest true "Application"
// @Success 201 {object} models.RiderApplication
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /riders/applications [post]
func (s *RiderService) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10_485_760) // document images ride along as data URIs

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req ApplicationRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM riders WHERE phone_number = $1)`,
		req.PhoneNumber).Scan(&exists); err != nil {
		log.Printf("[RIDER] Application existence check failed: %v", err)
		SendErrorResponse(w, "Failed to submit application", http.StatusInternalServerError, nil)
		return
	}
	if exists {
		SendErrorResponse(w, "Phone number already registered", http.StatusConflict, nil)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[RIDER] Password hashing failed for %s: %v", req.PhoneNumber, err)
		SendErrorResponse(w, "Failed to submit application", http.StatusInternalServerError, nil)
		return
	}

	app := models.RiderApplication{
		PhoneNumber:     req.PhoneNumber,
		FullName:        req.FullName,
		Email:           req.Email,
		ProfileImage:    req.ProfileImage,
		OrcrImage:       req.OrcrImage,
		LicenseImage:    req.LicenseImage,
		SelfieImage:     req.SelfieImage,
		MotorcycleImage: req.MotorcycleImage,
		CreatedAt:       time.Now(),
	}

	_, err = s.db.Exec(`
		INSERT INTO rider_applications
		(phone_number, full_name, email, password, profile_image, orcr_image, license_image, selfie_image, motorcycle_image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		app.PhoneNumber, app.FullName, app.Email, hashedPassword, app.ProfileImage,
		app.OrcrImage, app.LicenseImage, app.SelfieImage, app.MotorcycleImage, app.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			SendErrorResponse(w, "Application already pending", http.StatusConflict, nil)
			return
		}
		log.Printf("[RIDER] Failed to insert application for %s: %v", req.PhoneNumber, err)
		SendErrorResponse(w, "Failed to submit application", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[RIDER] Application submitted for %s", req.PhoneNumber)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(app)
}

// ApproveApplication promotes a pending application into the rider pool
// @Summary Approve rider application
// @Description Move the application into the riders table and remove it from the pending pool in one transaction
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Applicant phone number"
// @Success 200 {object} models.RiderAccount
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /riders/applications/{phone}/approve [post]
func (s *RiderService) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	adminEmail := middleware.AdminEmail(r.Context())

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[RIDER] Failed to begin approval transaction: %v", err)
		SendErrorResponse(w, "Failed to approve application", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	var app models.RiderApplication
	var hashedPassword string
	err = tx.QueryRow(`
		SELECT phone_number, full_name, email, password, profile_image, orcr_image,
		       license_image, selfie_image, motorcycle_image, created_at
		FROM rider_applications
		WHERE phone_number = $1
		FOR UPDATE`, phone).Scan(&app.PhoneNumber, &app.FullName, &app.Email, &hashedPassword,
		&app.ProfileImage, &app.OrcrImage, &app.LicenseImage, &app.SelfieImage,
		&app.MotorcycleImage, &app.CreatedAt)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Application not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[RIDER] Failed to fetch application %s: %v", phone, err)
		SendErrorResponse(w, "Failed to approve application", http.StatusInternalServerError, nil)
		return
	}

	now := time.Now()
	rider := models.RiderAccount{
		PhoneNumber:     app.PhoneNumber,
		FullName:        app.FullName,
		Email:           app.Email,
		ProfileImage:    app.ProfileImage,
		OrcrImage:       app.OrcrImage,
		LicenseImage:    app.LicenseImage,
		SelfieImage:     app.SelfieImage,
		MotorcycleImage: app.MotorcycleImage,
		Status:          models.RiderStatusApproved,
		Credit:          0,
		CreatedAt:       app.CreatedAt,
		ApprovedAt:      now,
	}

	_, err = tx.Exec(`
		INSERT INTO riders
		(phone_number, full_name, email, password, profile_image, orcr_image, license_image, selfie_image, motorcycle_image, status, credit, created_at, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12)`,
		rider.PhoneNumber, rider.FullName, rider.Email, hashedPassword, rider.ProfileImage,
		rider.OrcrImage, rider.LicenseImage, rider.SelfieImage, rider.MotorcycleImage,
		rider.Status, rider.CreatedAt, rider.ApprovedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			SendErrorResponse(w, "Rider already approved", http.StatusConflict, nil)
			return
		}
		log.Printf("[RIDER] Failed to insert rider %s: %v", phone, err)
		SendErrorResponse(w, "Failed to approve application", http.StatusInternalServerError, nil)
		return
	}

	if _, err := tx.Exec(`DELETE FROM rider_applications WHERE phone_number = $1`, phone); err != nil {
		log.Printf("[RIDER] Failed to remove application %s: %v", phone, err)
		SendErrorResponse(w, "Failed to approve application", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[RIDER] Failed to commit approval for %s: %v", phone, err)
		SendErrorResponse(w, "Failed to approve application", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[RIDER] Application %s approved by %s", phone, adminEmail)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rider)
}

// RejectApplication removes a pending application
// @Summary Reject rider application
// @Tags riders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Applicant phone number"
// @Param request body object{reason=string} false "Optional rejection reason"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /riders/applications/{phone}/reject [post]
func (s *RiderService) RejectApplication(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	adminEmail := middleware.AdminEmail(r.Context())

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := s.db.Exec(`DELETE FROM rider_applications WHERE phone_number = $1`, phone)
	if err != nil {
		log.Printf("[RIDER] Failed to reject application %s: %v", phone, err)
		SendErrorResponse(w, "Failed to reject application", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		SendErrorResponse(w, "Application not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[RIDER] Application %s rejected by %s (reason: %q)", phone, adminEmail, req.Reason)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Application rejected"})
}

// Suspend suspends an approved rider
// @Summary Suspend rider
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /riders/{phone}/suspend [put]
func (s *RiderService) Suspend(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, models.RiderStatusApproved, models.RiderStatusSuspended, "suspended_at", "Rider suspended")
}

// Restore restores a suspended rider
// @Summary Restore rider
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /riders/{phone}/restore [put]
func (s *RiderService) Restore(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, models.RiderStatusSuspended, models.RiderStatusApproved, "restored_at", "Rider restored")
}

// transition flips the status only when the rider is currently in fromStatus,
// so two admins racing cannot double-apply a toggle.
func (s *RiderService) transition(w http.ResponseWriter, r *http.Request, fromStatus, toStatus, stampColumn, message string) {
	phone := chi.URLParam(r, "phone")
	adminEmail := middleware.AdminEmail(r.Context())

	result, err := s.db.Exec(`
		UPDATE riders SET status = $1, `+stampColumn+` = $2
		WHERE phone_number = $3 AND status = $4`,
		toStatus, time.Now(), phone, fromStatus)
	if err != nil {
		log.Printf("[RIDER] Failed to set %s on %s: %v", toStatus, phone, err)
		SendErrorResponse(w, "Failed to update rider status", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		var exists bool
		if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM riders WHERE phone_number = $1)`, phone).Scan(&exists); err == nil && exists {
			SendErrorResponse(w, "Rider is not "+fromStatus, http.StatusConflict, nil)
			return
		}
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[RIDER] %s -> %s by %s", phone, toStatus, adminEmail)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// DeleteRider permanently removes a rider
// @Summary Delete rider
// @Description Permanently delete a rider account; the credit history is kept for audit
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /riders/{phone} [delete]
func (s *RiderService) DeleteRider(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	adminEmail := middleware.AdminEmail(r.Context())

	result, err := s.db.Exec(`DELETE FROM riders WHERE phone_number = $1`, phone)
	if err != nil {
		log.Printf("[RIDER] Failed to delete rider %s: %v", phone, err)
		SendErrorResponse(w, "Failed to delete rider", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[RIDER] Rider %s deleted by %s", phone, adminEmail)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Rider deleted"})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRider(row rowScanner) (*models.RiderAccount, error) {
	var rider models.RiderAccount
	err := row.Scan(&rider.PhoneNumber, &rider.FullName, &rider.Email, &rider.ProfileImage,
		&rider.OrcrImage, &rider.LicenseImage, &rider.SelfieImage, &rider.MotorcycleImage,
		&rider.Status, &rider.Credit, &rider.CreatedAt, &rider.ApprovedAt,
		&rider.SuspendedAt, &rider.RestoredAt, &rider.LastCreditUpdate)
	if err != nil {
		return nil, err
	}
	return &rider, nil
}
