package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"doctrack/internal/domain/uow"
	"doctrack/internal/domain/user"
	"doctrack/pkg/id"
)

// seedPassword is the demo credential for the accounts created on an empty
// user table.
const seedPassword = "password"

type Usecase struct {
	users  user.Repository
	uow    uow.UnitOfWork
	tokens *TokenIssuer
	deny   Denylist
	cost   int
}

func NewUsecase(users user.Repository, tx uow.UnitOfWork, tokens *TokenIssuer, deny Denylist) *Usecase {
	if deny == nil {
		deny = NewMemoryDenylist()
	}
	return &Usecase{users: users, uow: tx, tokens: tokens, deny: deny, cost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (u *Usecase) WithBcryptCost(cost int) *Usecase {
	u.cost = cost
	return u
}

func (u *Usecase) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// EnsureSeedUsers creates admin/password and user/password when no user
// exists yet.
func (u *Usecase) EnsureSeedUsers(ctx context.Context) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		existing, err := r.Users.List(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for _, seed := range []struct {
			name string
			role user.Role
		}{{"admin", user.RoleAdmin}, {"user", user.RoleUser}} {
			h, err := u.hash(seedPassword)
			if err != nil {
				return err
			}
			if err := r.Users.Create(ctx, &user.User{ID: id.NewID32(), Username: seed.name, PasswordHash: h, Role: seed.role}); err != nil {
				return fmt.Errorf("seed %s: %w", seed.name, err)
			}
		}
		return nil
	})
}

func (u *Usecase) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if in.Username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	usr, err := u.users.GetByUsername(ctx, in.Username)
	switch {
	case errors.Is(err, user.ErrNotFound):
		return nil, user.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(in.Password)) != nil {
		return nil, user.ErrInvalidCredentials
	}
	token, _, err := u.tokens.Issue(usr.Username, usr.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{OK: true, Username: usr.Username, Role: usr.Role, Token: token}, nil
}

// Register persists a new account. Any role other than "admin" becomes
// "user". Creating an admin while one already exists needs an admin caller.
func (u *Usecase) Register(ctx context.Context, in RegisterInput, caller *Principal) (*RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	role := user.ParseRole(in.Role)
	h, err := u.hash(in.Password)
	if err != nil {
		return nil, err
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Users.GetByUsername(ctx, in.Username); err == nil {
			return user.ErrExists
		} else if !errors.Is(err, user.ErrNotFound) {
			return err
		}
		if role == user.RoleAdmin && !caller.IsAdmin() {
			admins, err := r.Users.CountByRole(ctx, user.RoleAdmin)
			if err != nil {
				return err
			}
			if admins > 0 {
				return user.ErrAdminRequired
			}
		}
		return r.Users.Create(ctx, &user.User{ID: id.NewID32(), Username: in.Username, PasswordHash: h, Role: role})
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{OK: true, Username: in.Username, Role: role}, nil
}

// Logout revokes the token. Unknown or expired tokens are not an error.
func (u *Usecase) Logout(ctx context.Context, token string) error {
	p, err := u.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return u.deny.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (u *Usecase) Authenticate(ctx context.Context, token string) (*Principal, error) {
	p, err := u.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := u.deny.Revoked(ctx, p.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return p, nil
}

func (u *Usecase) ListUsers(ctx context.Context, caller *Principal) ([]UserDTO, error) {
	if !caller.IsAdmin() {
		return nil, user.ErrAdminRequired
	}
	all, err := u.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserDTO, 0, len(all))
	for _, usr := range all {
		out = append(out, toDTO(usr))
	}
	return out, nil
}

// UpdateRole changes a user's role; the last admin cannot be demoted.
func (u *Usecase) UpdateRole(ctx context.Context, caller *Principal, username, role string) (*UserDTO, error) {
	if !caller.IsAdmin() {
		return nil, user.ErrAdminRequired
	}
	next := user.ParseRole(role)
	var out UserDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		usr, err := r.Users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if usr.Role == user.RoleAdmin && next != user.RoleAdmin {
			if err := requireOtherAdmin(ctx, r.Users); err != nil {
				return err
			}
		}
		usr.Role = next
		if err := r.Users.Save(ctx, usr); err != nil {
			return err
		}
		out = toDTO(*usr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an account; the last admin cannot be deleted.
func (u *Usecase) DeleteUser(ctx context.Context, caller *Principal, username string) error {
	if !caller.IsAdmin() {
		return user.ErrAdminRequired
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		usr, err := r.Users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if usr.Role == user.RoleAdmin {
			if err := requireOtherAdmin(ctx, r.Users); err != nil {
				return err
			}
		}
		return r.Users.Delete(ctx, username)
	})
}

// requireOtherAdmin is called while the target is still an admin.
func requireOtherAdmin(ctx context.Context, users user.Repository) error {
	admins, err := users.CountByRole(ctx, user.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return user.ErrLastAdmin
	}
	return nil
}
