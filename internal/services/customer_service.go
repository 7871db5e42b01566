package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// CustomerService exposes the read-only customer directory.
type CustomerService struct {
	db *sql.DB
}

func NewCustomerService(db *sql.DB) *CustomerService {
	return &CustomerService{db: db}
}

// ListCustomers lists customer accounts
// @Summary List customers
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Customer
// @Router /customers [get]
func (s *CustomerService) ListCustomers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, full_name, phone_number, email, address, created_at
		FROM customers
		ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("[CUSTOMER] Failed to list customers: %v", err)
		SendErrorResponse(w, "Failed to fetch customers", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.FullName, &c.PhoneNumber, &c.Email, &c.Address, &c.CreatedAt); err != nil {
			log.Printf("[CUSTOMER] Failed to scan customer row: %v", err)
			SendErrorResponse(w, "Failed to fetch customers", http.StatusInternalServerError, nil)
			return
		}
		customers = append(customers, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(customers)
}

// GetCustomer returns one customer
// @Summary Get customer
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer id"
// @Success 200 {object} models.Customer
// @Failure 404 {object} ErrorResponse
// @Router /customers/{id} [get]
func (s *CustomerService) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c models.Customer
	err := s.db.QueryRow(`
		SELECT id, full_name, phone_number, email, address, created_at
		FROM customers
		WHERE id = $1`, id).Scan(&c.ID, &c.FullName, &c.PhoneNumber, &c.Email, &c.Address, &c.CreatedAt)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Customer not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[CUSTOMER] Failed to fetch customer %s: %v", id, err)
		SendErrorResponse(w, "Failed to fetch customer", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// GetCustomerOrders lists one customer's orders
// @Summary List a customer's orders
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer id"
// @Success 200 {array} models.Order
// @Router /customers/{id}/orders [get]
func (s *CustomerService) GetCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rows, err := s.db.Query(`
		SELECT id, customer_id, customer_name, customer_phone, pickup, dropoff, details,
		       status, base_price, tip, total, rider_phone, created_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC`, id)
	if err != nil {
		log.Printf("[CUSTOMER] Failed to list orders for %s: %v", id, err)
		SendErrorResponse(w, "Failed to fetch orders", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Printf("[CUSTOMER] Failed to scan order row: %v", err)
			SendErrorResponse(w, "Failed to fetch orders", http.StatusInternalServerError, nil)
			return
		}
		orders = append(orders, *order)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}
