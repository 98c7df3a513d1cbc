package user

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrExists             = errors.New("username exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminRequired      = errors.New("admin required")
	ErrLastAdmin          = errors.New("cannot remove last admin")
	ErrInvalidRole        = errors.New("invalid role")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// ParseRole maps anything that is not "admin" to the user role, the same
// normalization the register and role-update endpoints apply.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Table: users
type User struct {
	ID           string `gorm:"column:id;primaryKey;size:32" json:"id"`
	Username     string `gorm:"column:username;size:64;not null;uniqueIndex:ux_users_username" json:"username"`
	PasswordHash string `gorm:"column:password_hash;type:text;not null" json:"passwordHash"`
	Role         Role   `gorm:"column:role;size:16;not null;index" json:"role"`
	// epoch milliseconds
	CreatedAt int64 `gorm:"column:created_at;autoCreateTime:milli" json:"createdAt"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
