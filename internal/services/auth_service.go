package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fetchgo/admin-backend/internal/config"
	"github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

// AuthService authenticates panel admins against the admins table. The
// hardcoded client-side credential pair of the old console is gone; the
// initial admin is seeded from config with a hashed password.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"admin@fetchgo.com"`
	Password string `json:"password" validate:"required,min=6" example:"password123"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string       `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Admin models.Admin `json:"admin"`
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

// SeedAdmin creates the initial admin account when the table is empty. A
// blank seed password leaves the table alone so a locked-down deployment can
// provision admins manually.
func (s *AuthService) SeedAdmin(cfg *config.PlatformConfig) error {
	if cfg.SeedAdminPassword == "" {
		return nil
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := hashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO admins (email, password, full_name, created_at) VALUES ($1, $2, $3, $4)`,
		strings.ToLower(cfg.SeedAdminEmail), hashedPassword, cfg.SeedAdminName, time.Now())
	if err != nil {
		return err
	}

	log.Printf("[AUTH] Seeded initial admin %s", cfg.SeedAdminEmail)
	return nil
}

// Login handles admin authentication
// @Summary Login admin
// @Description Authenticate an admin with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 401 {string} string "Invalid credentials"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LoginRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var admin models.Admin
	var hashedPassword string
	err := s.db.QueryRow(`SELECT id, email, full_name, password, created_at FROM admins WHERE email = $1`,
		strings.ToLower(req.Email)).Scan(&admin.ID, &admin.Email, &admin.FullName, &hashedPassword, &admin.CreatedAt)
	if err != nil {
		log.Printf("[AUTH] Admin not found: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for admin: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(admin.ID, admin.Email)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for admin %d: %v", admin.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	now := time.Now()
	if _, err := s.db.Exec(`UPDATE admins SET last_login = $1 WHERE id = $2`, now, admin.ID); err != nil {
		log.Printf("[AUTH] Failed to record last login for admin %d: %v", admin.ID, err)
	} else {
		admin.LastLogin = &now
	}

	log.Printf("[AUTH] Login successful for admin %d", admin.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, Admin: admin})
}

// Logout handles admin logout
// @Summary Logout admin
// @Description Logout the admin and blacklist the token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// GetAccount retrieves the authenticated admin's account
// @Summary Get admin account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Admin
// @Failure 401 {string} string "Unauthorized"
// @Failure 404 {string} string "Admin not found"
// @Router /auth/account [get]
func (s *AuthService) GetAccount(w http.ResponseWriter, r *http.Request) {
	email := middleware.AdminEmail(r.Context())
	if email == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var admin models.Admin
	err := s.db.QueryRow(`SELECT id, email, full_name, last_login, created_at FROM admins WHERE email = $1`,
		email).Scan(&admin.ID, &admin.Email, &admin.FullName, &admin.LastLogin, &admin.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Admin not found", http.StatusNotFound)
		} else {
			log.Printf("[AUTH] Failed to fetch admin %s: %v", email, err)
			http.Error(w, "Failed to fetch admin details", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(admin)
}

func generateJWT(adminID int, adminEmail string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"admin_id":    adminID,
		"admin_email": adminEmail,
		"exp":         time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
