// Package jsonfile keeps documents and users in a single JSON file. The
// whole file is rewritten on every mutation (tmp, fsync, rename), so a crash
// never leaves a half-written blob behind.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"doctrack/internal/domain/document"
	"doctrack/internal/domain/uow"
	"doctrack/internal/domain/user"
	"doctrack/pkg/fsutil"
)

type fileData struct {
	Users []user.User         `json:"users"`
	Docs  []document.Document `json:"docs"`
}

func (d fileData) clone() fileData {
	out := fileData{
		Users: make([]user.User, len(d.Users)),
		Docs:  make([]document.Document, len(d.Docs)),
	}
	copy(out.Users, d.Users)
	copy(out.Docs, d.Docs)
	return out
}

// Store serializes writers with a mutex. Readers see the last committed
// snapshot.
type Store struct {
	mu   sync.Mutex
	path string
	data fileData
}

// Open loads path, creating an empty database file when it does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.persist(s.data); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Documents() *DocumentRepository { return &DocumentRepository{store: s} }
func (s *Store) Users() *UserRepository         { return &UserRepository{store: s} }

func (s *Store) persist(d fileData) error {
	if d.Users == nil {
		d.Users = []user.User{}
	}
	if d.Docs == nil {
		d.Docs = []document.Document{}
	}
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode db: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, raw, 0o640); err != nil {
		return fmt.Errorf("persist %s: %w", s.path, err)
	}
	return nil
}

// tx is a working copy shared by the repos handed to a WithinTx callback.
type tx struct {
	data  *fileData
	dirty bool
}

// view runs fn against the tx copy when bound, else the committed snapshot.
func (s *Store) view(t *tx, fn func(d *fileData)) {
	if t != nil {
		fn(t.data)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
}

// mutate applies fn to a copy and commits it to disk; inside a tx the copy
// is the tx one and the commit happens when the tx ends.
func (s *Store) mutate(t *tx, fn func(d *fileData) error) error {
	if t != nil {
		if err := fn(t.data); err != nil {
			return err
		}
		t.dirty = true
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(&work); err != nil {
		return err
	}
	if err := s.persist(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	t := &tx{data: &work}
	if err := fn(uow.Repos{
		Documents: &DocumentRepository{store: s, tx: t},
		Users:     &UserRepository{store: s, tx: t},
	}); err != nil {
		return err
	}
	if !t.dirty {
		return nil
	}
	if err := s.persist(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) WithinDocumentTx(ctx context.Context, controlNumber string, fn func(r uow.Repos, d *document.Document) error) error {
	return s.WithinTx(ctx, func(r uow.Repos) error {
		d, err := r.Documents.GetByControlNumber(ctx, controlNumber)
		if err != nil {
			return err
		}
		return fn(r, d)
	})
}
