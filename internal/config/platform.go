package config

import (
	"os"
	"strconv"
	"time"
)

type PlatformConfig struct {
	CommissionRate       float64
	GcashAccountName     string
	GcashAccountNumber   string
	TopupQRTimeout       time.Duration
	RequestListCacheTTL  time.Duration
	SeedAdminEmail       string
	SeedAdminPassword    string
	SeedAdminName        string
	MaxCreditPerApproval float64
}

func LoadPlatformConfig() *PlatformConfig {
	return &PlatformConfig{
		CommissionRate:       getEnvAsFloat("PLATFORM_COMMISSION_RATE", 0.21),
		GcashAccountName:     getEnv("PLATFORM_GCASH_NAME", "FetchGo Logistics"),
		GcashAccountNumber:   getEnv("PLATFORM_GCASH_NUMBER", ""),
		TopupQRTimeout:       getEnvAsDuration("TOPUP_QR_TIMEOUT", 15*time.Minute),
		RequestListCacheTTL:  getEnvAsDuration("REQUEST_LIST_CACHE_TTL", 5*time.Second),
		SeedAdminEmail:       getEnv("SEED_ADMIN_EMAIL", "admin@fetchgo.com"),
		SeedAdminPassword:    getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAdminName:        getEnv("SEED_ADMIN_NAME", "FetchGo Admin"),
		MaxCreditPerApproval: getEnvAsFloat("MAX_CREDIT_PER_APPROVAL", 10000),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
