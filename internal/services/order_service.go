package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/fetchgo/admin-backend/internal/config"
	"github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// OrderService exposes the order list and the dashboard statistics.
type OrderService struct {
	db        *sql.DB
	cfg       *config.PlatformConfig
	validator *ValidationHelper
}

func NewOrderService(db *sql.DB, cfg *config.PlatformConfig) *OrderService {
	return &OrderService{
		db:        db,
		cfg:       cfg,
		validator: NewValidationHelper(),
	}
}

// ListOrders lists orders across all customers
// @Summary List orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by order status"
// @Success 200 {array} models.Order
// @Router /orders [get]
func (s *OrderService) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	query := `
		SELECT id, customer_id, customer_name, customer_phone, pickup, dropoff, details,
		       status, base_price, tip, total, rider_phone, created_at
		FROM orders`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Printf("[ORDER] Failed to list orders: %v", err)
		SendErrorResponse(w, "Failed to fetch orders", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Printf("[ORDER] Failed to scan order row: %v", err)
			SendErrorResponse(w, "Failed to fetch orders", http.StatusInternalServerError, nil)
			return
		}
		orders = append(orders, *order)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// GetOrder returns one order
// @Summary Get order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (s *OrderService) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	row := s.db.QueryRow(`
		SELECT id, customer_id, customer_name, customer_phone, pickup, dropoff, details,
		       status, base_price, tip, total, rider_phone, created_at
		FROM orders
		WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[ORDER] Failed to fetch order %s: %v", id, err)
		SendErrorResponse(w, "Failed to fetch order", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// UpdateStatus updates an order's status
// @Summary Update order status
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Param request body object{status=string} true "New status"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/status [put]
func (s *OrderService) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	adminEmail := middleware.AdminEmail(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req struct {
		Status string `json:"status" validate:"required,oneof=pending in_progress delivered completed cancelled"`
	}
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

	result, err := s.db.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, req.Status, id)
	if err != nil {
		log.Printf("[ORDER] Failed to update status of %s: %v", id, err)
		SendErrorResponse(w, "Failed to update order", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[ORDER] Order %s -> %s by %s", id, req.Status, adminEmail)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Order status updated"})
}

// GetStatistics aggregates dashboard figures
// @Summary Dashboard statistics
// @Description Order totals, status breakdown and the platform's cut of delivered base prices
// @Tags statistics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Statistics
// @Router /statistics [get]
func (s *OrderService) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats := models.Statistics{
		StatusBreakdown:       map[string]int{},
		PlatformDeductionRate: s.cfg.CommissionRate,
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*), COALESCE(SUM(base_price), 0) FROM orders GROUP BY status`)
	if err != nil {
		log.Printf("[STATS] Failed to aggregate orders: %v", err)
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		var basePriceSum float64
		if err := rows.Scan(&status, &count, &basePriceSum); err != nil {
			log.Printf("[STATS] Failed to scan aggregate row: %v", err)
			SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
			return
		}
		stats.StatusBreakdown[status] = count
		stats.TotalOrders += count
		if status == models.OrderStatusDelivered {
			stats.DeliveredOrders = count
			stats.DeliveredBasePrice = basePriceSum
		}
	}

	stats.PlatformDeduction = stats.DeliveredBasePrice * stats.PlatformDeductionRate
	stats.NetAfterDeduction = stats.DeliveredBasePrice - stats.PlatformDeduction

	if err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'suspended'),
		       COALESCE(SUM(credit), 0)
		FROM riders`).Scan(&stats.TotalRiders, &stats.SuspendedRiders, &stats.OutstandingRiderCredit); err != nil {
		log.Printf("[STATS] Failed to aggregate riders: %v", err)
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM rider_applications`).Scan(&stats.PendingApplications); err != nil {
		log.Printf("[STATS] Failed to count applications: %v", err)
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM credit_requests WHERE status = 'pending'`).Scan(&stats.PendingCreditRequests); err != nil {
		log.Printf("[STATS] Failed to count credit requests: %v", err)
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	err := row.Scan(&order.ID, &order.CustomerID, &order.CustomerName, &order.CustomerPhone,
		&order.Pickup, &order.Dropoff, &order.Details, &order.Status,
		&order.BasePrice, &order.Tip, &order.Total, &order.RiderPhone, &order.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
