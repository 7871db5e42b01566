package models

import "time"

// Rider status values. A pending application never appears in the riders
// table; approved and suspended toggle through the admin actions.
const (
	RiderStatusApproved  = "approved"
	RiderStatusSuspended = "suspended"
)

// RiderAccount represents an approved delivery partner, keyed by phone number.
type RiderAccount struct {
	PhoneNumber      string     `json:"phoneNumber" db:"phone_number"`
	FullName         string     `json:"fullName" db:"full_name"`
	Email            string     `json:"email" db:"email"`
	ProfileImage     string     `json:"profileImage,omitempty" db:"profile_image"`
	OrcrImage        string     `json:"orcrImage,omitempty" db:"orcr_image"`
	LicenseImage     string     `json:"licenseImage,omitempty" db:"license_image"`
	SelfieImage      string     `json:"selfieImage,omitempty" db:"selfie_image"`
	MotorcycleImage  string     `json:"motorcycleImage,omitempty" db:"motorcycle_image"`
	Status           string     `json:"status" db:"status"`
	Credit           float64    `json:"credit" db:"credit"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	ApprovedAt       time.Time  `json:"approvedAt" db:"approved_at"`
	SuspendedAt      *time.Time `json:"suspendedAt,omitempty" db:"suspended_at"`
	RestoredAt       *time.Time `json:"restoredAt,omitempty" db:"restored_at"`
	LastCreditUpdate *time.Time `json:"lastCreditUpdate,omitempty" db:"last_credit_update"`
}

// RiderApplication is a pending registration submitted from the rider app.
// Approval copies it into the riders table; rejection deletes it.
type RiderApplication struct {
	PhoneNumber     string    `json:"phoneNumber" db:"phone_number"`
	FullName        string    `json:"fullName" db:"full_name"`
	Email           string    `json:"email" db:"email"`
	Password        string    `json:"-" db:"password"`
	ProfileImage    string    `json:"profileImage,omitempty" db:"profile_image"`
	OrcrImage       string    `json:"orcrImage,omitempty" db:"orcr_image"`
	LicenseImage    string    `json:"licenseImage,omitempty" db:"license_image"`
	SelfieImage     string    `json:"selfieImage,omitempty" db:"selfie_image"`
	MotorcycleImage string    `json:"motorcycleImage,omitempty" db:"motorcycle_image"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}
