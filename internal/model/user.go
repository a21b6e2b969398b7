// Package model defines domain entities for the application.
package model

import "time"

// User represents an account holding a permission mask.
// Accounts are provisioned by an external collaborator; this core only
// reads them for authentication and ownership checks.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never serialize
	Perms        Perm      `json:"perms"`
	Language     string    `json:"language,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the point-in-time snapshot of a user embedded in an access
// token. It is trusted as of issuance: permission changes take effect on
// the next login, not on tokens already in flight.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Perms  Perm
}

// IdentityOf captures the token claims for a user.
func IdentityOf(u *User) Identity {
	return Identity{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Perms:  u.Perms,
	}
}

// IsAdmin reports whether the identity holds cross-tenant access.
func (i Identity) IsAdmin() bool {
	return i.Perms.Allows(RoleAdmin)
}

// UserResponse is the public representation of a user (no credential).
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Perms     int       `json:"perms"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a User to its public representation.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Perms:     int(u.Perms),
		Language:  u.Language,
		CreatedAt: u.CreatedAt,
	}
}

// LoginRequest carries credentials for token issuance.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the issued token and the identity it embeds.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
