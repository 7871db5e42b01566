package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func newPhoneRequest(method, target, phone string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("phone", phone)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestRiderService_ApproveApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRiderService(db)

	appColumns := []string{"phone_number", "full_name", "email", "password", "profile_image",
		"orcr_image", "license_image", "selfie_image", "motorcycle_image", "created_at"}

	t.Run("approval moves application into rider pool", func(t *testing.T) {
		phone := "09171234567"
		createdAt := time.Now().Add(-48 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT phone_number, full_name, email, password").
			WithArgs(phone).
			WillReturnRows(sqlmock.NewRows(appColumns).
				AddRow(phone, "Juan Dela Cruz", "juan@example.com", "salt$hash",
					"profile.png", "orcr.png", "license.png", "selfie.png", "motor.png", createdAt))
		mock.ExpectExec("INSERT INTO riders").
			WithArgs(phone, "Juan Dela Cruz", "juan@example.com", "salt$hash",
				"profile.png", "orcr.png", "license.png", "selfie.png", "motor.png",
				models.RiderStatusApproved, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM rider_applications").
			WithArgs(phone).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := httptest.NewRecorder()
		service.ApproveApplication(w, newPhoneRequest(http.MethodPost, "/riders/applications/"+phone+"/approve", phone))

		assert.Equal(t, http.StatusOK, w.Code)

		var rider models.RiderAccount
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&rider))
		assert.Equal(t, phone, rider.PhoneNumber)
		assert.Equal(t, models.RiderStatusApproved, rider.Status)
		assert.Equal(t, 0.0, rider.Credit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("application not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT phone_number, full_name, email, password").
			WithArgs("09990000000").
			WillReturnRows(sqlmock.NewRows(appColumns))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		service.ApproveApplication(w, newPhoneRequest(http.MethodPost, "/riders/applications/09990000000/approve", "09990000000"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRiderService_RejectApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRiderService(db)

	t.Run("rejection deletes the application", func(t *testing.T) {
		phone := "09171234567"

		mock.ExpectExec("DELETE FROM rider_applications").
			WithArgs(phone).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.RejectApplication(w, newPhoneRequest(http.MethodPost, "/riders/applications/"+phone+"/reject", phone))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("application not found", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM rider_applications").
			WithArgs("09990000000").
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		service.RejectApplication(w, newPhoneRequest(http.MethodPost, "/riders/applications/09990000000/reject", "09990000000"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRiderService_StatusTransitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRiderService(db)
	phone := "09171234567"

	t.Run("suspend approved rider", func(t *testing.T) {
		mock.ExpectExec("UPDATE riders SET status").
			WithArgs(models.RiderStatusSuspended, sqlmock.AnyArg(), phone, models.RiderStatusApproved).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.Suspend(w, newPhoneRequest(http.MethodPut, "/riders/"+phone+"/suspend", phone))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("suspend already suspended rider", func(t *testing.T) {
		mock.ExpectExec("UPDATE riders SET status").
			WithArgs(models.RiderStatusSuspended, sqlmock.AnyArg(), phone, models.RiderStatusApproved).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(phone).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		w := httptest.NewRecorder()
		service.Suspend(w, newPhoneRequest(http.MethodPut, "/riders/"+phone+"/suspend", phone))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("restore suspended rider", func(t *testing.T) {
		mock.ExpectExec("UPDATE riders SET status").
			WithArgs(models.RiderStatusApproved, sqlmock.AnyArg(), phone, models.RiderStatusSuspended).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.Restore(w, newPhoneRequest(http.MethodPut, "/riders/"+phone+"/restore", phone))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("transition on unknown rider", func(t *testing.T) {
		mock.ExpectExec("UPDATE riders SET status").
			WithArgs(models.RiderStatusSuspended, sqlmock.AnyArg(), "09990000000", models.RiderStatusApproved).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("09990000000").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		w := httptest.NewRecorder()
		service.Suspend(w, newPhoneRequest(http.MethodPut, "/riders/09990000000/suspend", "09990000000"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRiderService_DeleteRider(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRiderService(db)

	t.Run("delete existing rider", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM riders").
			WithArgs("09171234567").
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.DeleteRider(w, newPhoneRequest(http.MethodDelete, "/riders/09171234567", "09171234567"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete unknown rider", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM riders").
			WithArgs("09990000000").
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		service.DeleteRider(w, newPhoneRequest(http.MethodDelete, "/riders/09990000000", "09990000000"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
