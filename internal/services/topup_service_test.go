package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fetchgo/admin-backend/internal/config"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestTopupService_GenerateTopupQR(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	cfg := &config.PlatformConfig{
		GcashAccountName:   "FetchGo Services",
		GcashAccountNumber: "09170000000",
		TopupQRTimeout:     15 * time.Minute,
	}
	service := NewTopupService(db, redisClient, cfg)

	t.Run("rider gets a payment token and image", func(t *testing.T) {
		phone := "09171234567"

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(phone).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		redisMock.Regexp().ExpectSet(`topup_qr:.*`, `.*`, cfg.TopupQRTimeout).SetVal("OK")

		token, image, err := service.GenerateTopupQR(context.Background(), phone, 200.0)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NotEmpty(t, image)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown rider", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("09990000000").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, _, err := service.GenerateTopupQR(context.Background(), "09990000000", 200.0)
		assert.ErrorIs(t, err, ErrRiderNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTopupService_VerifyTopupQR(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewTopupService(db, redisClient, &config.PlatformConfig{TopupQRTimeout: 15 * time.Minute})

	t.Run("valid token is consumed", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]any{
			"phoneKey": "09171234567",
			"amount":   200.0,
		})

		redisMock.ExpectGet("topup_qr:tok-1").SetVal(string(payload))
		redisMock.ExpectDel("topup_qr:tok-1").SetVal(1)

		resolved, err := service.VerifyTopupQR(context.Background(), "tok-1")
		assert.NoError(t, err)
		assert.Equal(t, "09171234567", resolved["phoneKey"])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("expired token", func(t *testing.T) {
		redisMock.ExpectGet("topup_qr:tok-2").RedisNil()

		_, err := service.VerifyTopupQR(context.Background(), "tok-2")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})
}
