// Package store is the client-side document collection: the active list,
// the soft-delete archive, and the change notifications the CLI and the
// sync layer hang off.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"doctrack/internal/domain/document"
)

const (
	KeyDocs    = "docs"
	KeyArchive = "archive"
)

// Container is the persisted key/value backend.
type Container interface {
	Get(key string, v any) (bool, error)
	SetMany(values map[string]json.RawMessage) error
}

// Pusher mirrors the collection to the remote store. Push must not block.
type Pusher interface {
	Push(docs []document.Document)
}

// UpsertOptions controls how Upsert treats the caller's createdAt.
type UpsertOptions struct {
	// OverrideCreatedAt keeps the input createdAt on an existing record.
	// The value is still checked against the clock-skew limit.
	OverrideCreatedAt bool
	// KeepUpdatedAt keeps a non-zero input updatedAt instead of stamping now.
	KeepUpdatedAt bool
}

func (o UpsertOptions) stamp(doc *document.Document, now time.Time) {
	if o.KeepUpdatedAt && doc.UpdatedAt != 0 {
		return
	}
	doc.UpdatedAt = now.UnixMilli()
}

type Store struct {
	mu      sync.RWMutex
	kv      Container
	docs    []document.Document
	archive []document.Document
	pusher  Pusher
	subs    []func()
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }
func WithLogger(l *slog.Logger) Option      { return func(s *Store) { s.log = l } }

func New(kv Container, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetPusher attaches (or, with nil, detaches) the remote mirror.
func (s *Store) SetPusher(p Pusher) {
	s.mu.Lock()
	s.pusher = p
	s.mu.Unlock()
}

// OnChange registers fn to run after every mutation.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// Load reads both collections. A collection that fails to decode is reset
// to empty so one bad key never locks the user out of the other.
func (s *Store) Load() error {
	docs := s.loadCollection(KeyDocs)
	archive := s.loadCollection(KeyArchive)
	s.mu.Lock()
	s.docs = docs
	s.archive = archive
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) loadCollection(key string) []document.Document {
	var out []document.Document
	if _, err := s.kv.Get(key, &out); err != nil {
		s.log.Warn("store: collection unreadable, resetting", "key", key, "err", err)
		return []document.Document{}
	}
	if out == nil {
		out = []document.Document{}
	}
	return out
}

// Save writes both collections locally and then hands the active list to the
// pusher, if any. Only the local write can fail the call.
func (s *Store) Save() error {
	s.mu.RLock()
	docs := clone(s.docs)
	pusher := s.pusher
	s.mu.RUnlock()
	if err := s.writeLocal(); err != nil {
		return err
	}
	if pusher != nil {
		pusher.Push(docs)
	}
	return nil
}

func (s *Store) writeLocal() error {
	s.mu.RLock()
	docs, err := json.Marshal(nonNil(s.docs))
	if err != nil {
		s.mu.RUnlock()
		return fmt.Errorf("encode docs: %w", err)
	}
	archive, err := json.Marshal(nonNil(s.archive))
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := s.kv.SetMany(map[string]json.RawMessage{KeyDocs: docs, KeyArchive: archive}); err != nil {
		return fmt.Errorf("save collections: %w", err)
	}
	return nil
}

// Upsert inserts or replaces doc by control number. An existing record keeps
// its createdAt unless opts asks for the override; a new record takes the
// input createdAt or now and goes to the front of the list. updatedAt is
// stamped unless opts keeps the input one.
func (s *Store) Upsert(doc document.Document, opts UpsertOptions) (document.Document, error) {
	now := s.now()
	doc = doc.WithDefaults()
	doc.DeletedAt = 0

	s.mu.Lock()
	idx := indexOf(s.docs, doc.ControlNumber)
	switch {
	case idx >= 0 && (!opts.OverrideCreatedAt || doc.CreatedAt == 0):
		doc.CreatedAt = s.docs[idx].CreatedAt
	case doc.CreatedAt == 0:
		doc.CreatedAt = now.UnixMilli()
	}
	opts.stamp(&doc, now)
	if err := doc.Validate(now); err != nil {
		s.mu.Unlock()
		return document.Document{}, err
	}
	if idx >= 0 {
		s.docs[idx] = doc
	} else {
		s.docs = append([]document.Document{doc}, s.docs...)
	}
	s.mu.Unlock()

	s.notify()
	return doc, nil
}

// Insert adds a brand new record and fails if the control number is taken.
func (s *Store) Insert(doc document.Document) (document.Document, error) {
	s.mu.RLock()
	taken := indexOf(s.docs, doc.ControlNumber) >= 0
	s.mu.RUnlock()
	if taken {
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrDuplicateControlNumber, doc.ControlNumber)
	}
	return s.Upsert(doc, UpsertOptions{})
}

// Rename drops the record at oldCN and inserts doc at the front of the list
// with the old createdAt. The old key is not archived.
func (s *Store) Rename(oldCN string, doc document.Document, opts UpsertOptions) (document.Document, error) {
	if doc.ControlNumber == oldCN {
		return s.Upsert(doc, opts)
	}
	now := s.now()
	doc = doc.WithDefaults()
	doc.DeletedAt = 0

	s.mu.Lock()
	idx := indexOf(s.docs, oldCN)
	if idx < 0 {
		s.mu.Unlock()
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrNotFound, oldCN)
	}
	if indexOf(s.docs, doc.ControlNumber) >= 0 {
		s.mu.Unlock()
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrDuplicateControlNumber, doc.ControlNumber)
	}
	if !opts.OverrideCreatedAt || doc.CreatedAt == 0 {
		doc.CreatedAt = s.docs[idx].CreatedAt
	}
	opts.stamp(&doc, now)
	if err := doc.Validate(now); err != nil {
		s.mu.Unlock()
		return document.Document{}, err
	}
	rest := append(s.docs[:idx:idx], s.docs[idx+1:]...)
	s.docs = append([]document.Document{doc}, rest...)
	s.mu.Unlock()

	s.notify()
	return doc, nil
}

// SoftDelete moves cn to the archive with deletedAt set.
func (s *Store) SoftDelete(cn string) (document.Document, error) {
	now := s.now()
	s.mu.Lock()
	idx := indexOf(s.docs, cn)
	if idx < 0 {
		s.mu.Unlock()
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrNotFound, cn)
	}
	doc := s.docs[idx]
	s.docs = append(s.docs[:idx:idx], s.docs[idx+1:]...)
	archived := doc
	archived.DeletedAt = now.UnixMilli()
	s.archive = append([]document.Document{archived}, s.archive...)
	s.mu.Unlock()

	s.notify()
	return doc, nil
}

// Restore moves the newest archive entry for cn back into the active list
// with every field as it was when deleted. It reports false when cn is not
// archived.
func (s *Store) Restore(cn string) (bool, error) {
	s.mu.Lock()
	idx := indexOf(s.archive, cn)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	if indexOf(s.docs, cn) >= 0 {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", document.ErrDuplicateControlNumber, cn)
	}
	doc := s.archive[idx]
	doc.DeletedAt = 0
	s.archive = append(s.archive[:idx:idx], s.archive[idx+1:]...)
	s.docs = append([]document.Document{doc}, s.docs...)
	s.mu.Unlock()

	s.notify()
	return true, nil
}

// Purge drops every archive entry for cn. It reports false when none exist.
func (s *Store) Purge(cn string) bool {
	s.mu.Lock()
	kept := s.archive[:0:0]
	for _, d := range s.archive {
		if d.ControlNumber != cn {
			kept = append(kept, d)
		}
	}
	removed := len(kept) != len(s.archive)
	s.archive = kept
	s.mu.Unlock()

	if removed {
		s.notify()
	}
	return removed
}

// Replace swaps the active list for docs when their serialized form differs
// and persists locally without pushing back. It reports whether anything
// changed.
func (s *Store) Replace(docs []document.Document) (bool, error) {
	next := clone(nonNil(docs))
	nextRaw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("encode docs: %w", err)
	}
	s.mu.Lock()
	curRaw, err := json.Marshal(nonNil(s.docs))
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("encode docs: %w", err)
	}
	if bytes.Equal(curRaw, nextRaw) {
		s.mu.Unlock()
		return false, nil
	}
	s.docs = next
	s.mu.Unlock()

	if err := s.writeLocal(); err != nil {
		return true, err
	}
	s.notify()
	return true, nil
}

func (s *Store) List() []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(nonNil(s.docs))
}

func (s *Store) Archive() []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(nonNil(s.archive))
}

func (s *Store) Get(cn string) (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := indexOf(s.docs, cn); idx >= 0 {
		return s.docs[idx], true
	}
	return document.Document{}, false
}

func (s *Store) Has(cn string) bool {
	_, ok := s.Get(cn)
	return ok
}

func indexOf(docs []document.Document, cn string) int {
	for i := range docs {
		if docs[i].ControlNumber == cn {
			return i
		}
	}
	return -1
}

func clone(docs []document.Document) []document.Document {
	out := make([]document.Document, len(docs))
	copy(out, docs)
	return out
}

func nonNil(docs []document.Document) []document.Document {
	if docs == nil {
		return []document.Document{}
	}
	return docs
}
