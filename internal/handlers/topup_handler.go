package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fetchgo/admin-backend/internal/services"
)

type TopupHandler struct {
	service   *services.TopupService
	validator *services.ValidationHelper
}

func NewTopupHandler(service *services.TopupService) *TopupHandler {
	return &TopupHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateQR generates a top-up payment QR code
// @Summary Generate top-up QR
// @Description Generate a GCash payment QR code for a rider top-up
// @Tags topup
// @Accept json
// @Produce json
// @Param request body object{phoneKey=string,amount=number} true "Top-up QR request"
// @Success 200 {object} object{qrToken=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /topup/qr [post]
func (h *TopupHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneKey string  `json:"phoneKey" validate:"required,min=10,max=13"`
		Amount   float64 `json:"amount" validate:"required,gt=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	token, image, err := h.service.GenerateTopupQR(r.Context(), req.PhoneKey, req.Amount)
	if err == services.ErrRiderNotFound {
		services.SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"qrToken": token,
		"qrImage": image,
	})
}

// VerifyQR resolves a scanned top-up QR code
// @Summary Verify top-up QR
// @Description Resolve a scanned QR token back to its payment payload
// @Tags topup
// @Accept json
// @Produce json
// @Param request body object{qrToken=string} true "QR verification request"
// @Success 200 {object} object{phoneKey=string,amount=number}
// @Failure 400 {object} services.ErrorResponse
// @Router /topup/qr/verify [post]
func (h *TopupHandler) VerifyQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRToken string `json:"qrToken" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	payload, err := h.service.VerifyTopupQR(r.Context(), req.QRToken)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    payload,
	})
}
