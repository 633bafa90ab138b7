package user

import (
	"errors"
	"time"
)

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
)

// ValidRole reports whether role is one of the two roles the system knows.
func ValidRole(role string) bool {
	return role == RoleEmployee || role == RoleManager
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Role     string `json:"role" binding:"omitempty,oneof=employee manager"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
