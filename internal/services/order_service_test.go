package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fetchgo/admin-backend/internal/config"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func newOrderStatusRequest(orderID, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPut, "/orders/"+orderID+"/status", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", orderID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestOrderService_GetStatistics(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewOrderService(db, &config.PlatformConfig{CommissionRate: 0.21})

	t.Run("aggregates orders and applies the platform cut", func(t *testing.T) {
		mock.ExpectQuery("SELECT status, COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"status", "count", "base_price_sum"}).
				AddRow(models.OrderStatusDelivered, 4, 1000.0).
				AddRow(models.OrderStatusPending, 2, 300.0).
				AddRow(models.OrderStatusCancelled, 1, 150.0))
		mock.ExpectQuery("FROM riders").
			WillReturnRows(sqlmock.NewRows([]string{"count", "suspended", "credit_sum"}).
				AddRow(10, 2, 2500.0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rider_applications").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM credit_requests").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		w := httptest.NewRecorder()
		service.GetStatistics(w, httptest.NewRequest(http.MethodGet, "/statistics", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var stats models.Statistics
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
		assert.Equal(t, 7, stats.TotalOrders)
		assert.Equal(t, 4, stats.DeliveredOrders)
		assert.Equal(t, 1000.0, stats.DeliveredBasePrice)
		assert.Equal(t, 0.21, stats.PlatformDeductionRate)
		assert.InDelta(t, 210.0, stats.PlatformDeduction, 0.0001)
		assert.InDelta(t, 790.0, stats.NetAfterDeduction, 0.0001)
		assert.Equal(t, 10, stats.TotalRiders)
		assert.Equal(t, 2, stats.SuspendedRiders)
		assert.Equal(t, 2500.0, stats.OutstandingRiderCredit)
		assert.Equal(t, 3, stats.PendingApplications)
		assert.Equal(t, 5, stats.PendingCreditRequests)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty platform", func(t *testing.T) {
		mock.ExpectQuery("SELECT status, COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"status", "count", "base_price_sum"}))
		mock.ExpectQuery("FROM riders").
			WillReturnRows(sqlmock.NewRows([]string{"count", "suspended", "credit_sum"}).
				AddRow(0, 0, 0.0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rider_applications").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM credit_requests").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		w := httptest.NewRecorder()
		service.GetStatistics(w, httptest.NewRequest(http.MethodGet, "/statistics", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var stats models.Statistics
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
		assert.Equal(t, 0, stats.TotalOrders)
		assert.Equal(t, 0.0, stats.PlatformDeduction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewOrderService(db, &config.PlatformConfig{CommissionRate: 0.21})

	t.Run("valid transition", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(models.OrderStatusDelivered, "order-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.UpdateStatus(w, newOrderStatusRequest("order-1", `{"status": "delivered"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.UpdateStatus(w, newOrderStatusRequest("order-1", `{"status": "teleported"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("order not found", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(models.OrderStatusCancelled, "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		service.UpdateStatus(w, newOrderStatusRequest("missing", `{"status": "cancelled"}`))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
