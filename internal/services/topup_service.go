package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/fetchgo/admin-backend/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

// TopupService issues short-lived GCash payment QR codes for rider top-ups.
// The payload lives in Redis for the configured timeout; a scan consumes it
// so a reference can only be claimed once.
type TopupService struct {
	db    *sql.DB
	redis *redis.Client
	cfg   *config.PlatformConfig
}

func NewTopupService(db *sql.DB, redisClient *redis.Client, cfg *config.PlatformConfig) *TopupService {
	return &TopupService{
		db:    db,
		redis: redisClient,
		cfg:   cfg,
	}
}

// GenerateTopupQR builds the payment payload for a rider and returns the
// opaque token plus a base64 PNG of the QR code.
func (s *TopupService) GenerateTopupQR(ctx context.Context, phoneKey string, amount float64) (string, string, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM riders WHERE phone_number = $1)`, phoneKey).Scan(&exists); err != nil {
		return "", "", err
	}
	if !exists {
		return "", "", ErrRiderNotFound
	}

	payload := map[string]any{
		"phoneKey":    phoneKey,
		"amount":      amount,
		"gcashName":   s.cfg.GcashAccountName,
		"gcashNumber": s.cfg.GcashAccountNumber,
		"generatedAt": time.Now().Unix(),
		"nonce":       generateNonce(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	token := base64.URLEncoding.EncodeToString(jsonData)

	if s.redis != nil {
		key := fmt.Sprintf("topup_qr:%s", token)
		if err := s.redis.Set(ctx, key, jsonData, s.cfg.TopupQRTimeout).Err(); err != nil {
			return "", "", err
		}
	}

	qr, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return token, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// VerifyTopupQR resolves a scanned token back to its payload and consumes it.
func (s *TopupService) VerifyTopupQR(ctx context.Context, token string) (map[string]any, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("QR verification unavailable")
	}

	key := fmt.Sprintf("topup_qr:%s", token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired QR code")
	}
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	s.redis.Del(ctx, key)

	return payload, nil
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
