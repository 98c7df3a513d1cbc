package jsonfile

import (
	"context"

	"doctrack/internal/domain/user"
)

type UserRepository struct {
	store *Store
	tx    *tx
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.store.mutate(r.tx, func(d *fileData) error {
		for _, existing := range d.Users {
			if existing.Username == u.Username {
				return user.ErrExists
			}
		}
		d.Users = append(d.Users, *u)
		return nil
	})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var out *user.User
	r.store.view(r.tx, func(d *fileData) {
		for i := range d.Users {
			if d.Users[i].Username == username {
				cp := d.Users[i]
				out = &cp
				return
			}
		}
	})
	if out == nil {
		return nil, user.ErrNotFound
	}
	return out, nil
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	var out []user.User
	r.store.view(r.tx, func(d *fileData) {
		out = make([]user.User, len(d.Users))
		copy(out, d.Users)
	})
	return out, nil
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	return r.store.mutate(r.tx, func(d *fileData) error {
		for i := range d.Users {
			if d.Users[i].Username == u.Username {
				d.Users[i] = *u
				return nil
			}
		}
		return user.ErrNotFound
	})
}

func (r *UserRepository) Delete(ctx context.Context, username string) error {
	return r.store.mutate(r.tx, func(d *fileData) error {
		for i := range d.Users {
			if d.Users[i].Username == username {
				d.Users = append(d.Users[:i], d.Users[i+1:]...)
				return nil
			}
		}
		return user.ErrNotFound
	})
}

func (r *UserRepository) CountByRole(ctx context.Context, role user.Role) (int64, error) {
	var n int64
	r.store.view(r.tx, func(d *fileData) {
		for _, u := range d.Users {
			if u.Role == role {
				n++
			}
		}
	})
	return n, nil
}
