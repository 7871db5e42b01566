package models

import "time"

// Admin is a staff account allowed to operate the panel. Passwords are stored
// as argon2id salt$hash, never plaintext.
type Admin struct {
	ID        int        `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	FullName  string     `json:"fullName" db:"full_name"`
	LastLogin *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}
