// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is fixed when an account is created and never changes afterwards.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleNGO       Role = "ngo"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleVolunteer, RoleNGO, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account.
//
// SECRETS STAY OUT OF JSON:
// PasswordHash and the single-use tokens carry `json:"-"` so a User can be
// written straight to a response without leaking them. Handlers never need
// a separate "public user" struct.
//
// Email is always stored lower-cased; uniqueness is therefore
// case-insensitive.
type User struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"-"`
	Role         Role    `json:"role"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Phone        string  `json:"phone"`
	IsVerified   bool    `json:"isVerified"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	ZipCode      *string `json:"zipCode"`
	Country      *string `json:"country"`
	Availability *string `json:"availability"` // free text, e.g. "weekday evenings"

	VerificationToken *string    `json:"-"`
	ResetToken        *string    `json:"-"`
	ResetTokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

// FullName is used in outgoing email greetings.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserUpdate is a partial update: nil fields are left untouched.
//
// The token fields are double pointers because "clear the token" (set the
// column to NULL) and "leave it alone" are different requests.
type UserUpdate struct {
	PasswordHash      *string
	IsVerified        *bool
	VerificationToken **string
	ResetToken        **string
	ResetTokenExpiry  **time.Time
}
