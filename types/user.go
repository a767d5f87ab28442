package types

import "time"

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the unique login address of the user.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// AvatarURL points to the user's avatar image, if any.
	AvatarURL string `json:"avatar_url,omitempty" db:"avatar_url"`

	// Role indicates the user's authorization level within the
	// system (e.g., "admin", "user").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// DeletedAt marks the account as soft-deleted when set.
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Roles understood by the authorization layer.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
