package model

import (
	"time"

	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

// User represents an application user record as stored in the `users`
// table. PasswordHash never leaves the server; handlers respond with the
// result of Public.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	Name         – display name.
//	Role         – one of the five portal roles.
//	IsActive     – inactive users cannot log in or use a token.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Name         string    // users.name
	Role         rbac.Role // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips credentials from u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// UserRef is the short form embedded in related records.
type UserRef struct {
	ID    uint64    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Role  rbac.Role `json:"role,omitempty"`
}
