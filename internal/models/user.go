package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the user's role tag. Admins may rename or delete group chats they
// did not create; everything else is the same for both roles.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleAdmin:
		return true
	}
	return false
}

// Elevated reports whether the role may override creator-only chat actions.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRef is the display projection of a user embedded in chat listings.
type UserRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role Role      `json:"role"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token  string    `json:"token"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}
