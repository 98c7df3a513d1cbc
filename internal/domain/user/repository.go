package user

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error
	// GetByUsername returns ErrNotFound when no row matches.
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Save(ctx context.Context, u *User) error
	Delete(ctx context.Context, username string) error
	CountByRole(ctx context.Context, role Role) (int64, error)
}
