package domain

import "time"

// Role separates end-users from helpdesk administrators.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the domain model for everyone who signs into the helpdesk.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Unit         Unit
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// OTPPurpose distinguishes account-verification codes from reset codes.
type OTPPurpose string

const (
	OTPPurposeVerify OTPPurpose = "VERIFY"
	OTPPurposeReset  OTPPurpose = "RESET"
)

// OTPCode is a single-use short code issued for verification or password reset.
type OTPCode struct {
	ID         string
	UserID     string
	Code       string
	Purpose    OTPPurpose
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Usable reports whether the code is still valid at the given instant.
func (o *OTPCode) Usable(now time.Time) bool {
	return o != nil && o.ConsumedAt == nil && now.Before(o.ExpiresAt)
}
