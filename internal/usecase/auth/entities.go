package auth

import (
	"errors"
	"time"

	"doctrack/internal/domain/user"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingFields = errors.New("username/password required")
)

// Principal is the identity carried by a verified bearer token.
type Principal struct {
	Username  string
	Role      user.Role
	TokenID   string
	ExpiresAt time.Time
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == user.RoleAdmin }

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	OK       bool      `json:"ok"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	Token    string    `json:"token"`
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type RegisterResult struct {
	OK       bool      `json:"ok"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
}

// UserDTO is the password-free view returned by user management.
type UserDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	CreatedAt int64     `json:"createdAt,omitempty"`
}

func toDTO(u user.User) UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}
