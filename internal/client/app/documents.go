package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"doctrack/internal/client/store"
	"doctrack/internal/domain/document"
	"doctrack/pkg/id"
)

const maxControlNumberAttempts = 200

type CreateInput struct {
	// ControlNumber empty asks for a generated one.
	ControlNumber string
	Title         string
	Owner         string
	Notes         string
	Status        document.Status
	WinsStatus    document.WinsStatus
	// CreatedAt zero means now.
	CreatedAt int64
}

// EditInput changes only the fields that are set.
type EditInput struct {
	ControlNumber *string
	Title         *string
	Owner         *string
	Notes         *string
	Status        *document.Status
	WinsStatus    *document.WinsStatus
	CreatedAt     *int64
}

// Filter narrows List. Query matches control number, title, notes and owner
// case-insensitively.
type Filter struct {
	Query      string
	Status     document.Status
	WinsStatus document.WinsStatus
}

func (f Filter) match(d document.Document) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.WinsStatus != "" && d.WinsStatus != f.WinsStatus {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, s := range []string{d.ControlNumber, d.Title, d.Notes, d.Owner} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// NextControlNumber generates an unused ECOM-<year>-NNNN key.
func (a *App) NextControlNumber() (string, error) {
	year := a.now().In(a.loc).Year()
	for i := 0; i < maxControlNumberAttempts; i++ {
		cn := id.NewControlNumber(year)
		if !a.store.Has(cn) {
			return cn, nil
		}
	}
	return "", fmt.Errorf("no free control number for %d after %d attempts", year, maxControlNumberAttempts)
}

func (a *App) Create(ctx context.Context, in CreateInput) (document.Document, error) {
	if _, err := a.authorize(ctx, document.ActionCreate, nil); err != nil {
		return document.Document{}, err
	}
	cn := strings.TrimSpace(in.ControlNumber)
	if cn == "" {
		var err error
		if cn, err = a.NextControlNumber(); err != nil {
			return document.Document{}, err
		}
	}
	doc := document.Document{
		ControlNumber: cn,
		Title:         strings.TrimSpace(in.Title),
		Owner:         strings.TrimSpace(in.Owner),
		Notes:         strings.TrimSpace(in.Notes),
		Status:        in.Status,
		WinsStatus:    in.WinsStatus,
		CreatedAt:     in.CreatedAt,
	}
	saved, err := a.store.Insert(doc)
	if err != nil {
		return document.Document{}, err
	}
	return saved, a.save()
}

// Edit updates the editable fields and, when ControlNumber changes, renames
// the record in place.
func (a *App) Edit(ctx context.Context, cn string, in EditInput) (document.Document, error) {
	cur, ok := a.store.Get(cn)
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrNotFound, cn)
	}
	if _, err := a.authorize(ctx, document.ActionEdit, &cur); err != nil {
		return document.Document{}, err
	}
	next := cur
	if in.Title != nil {
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.Owner != nil {
		next.Owner = strings.TrimSpace(*in.Owner)
	}
	if in.Notes != nil {
		next.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Status != nil {
		next.Status = *in.Status
	}
	if in.WinsStatus != nil {
		next.WinsStatus = *in.WinsStatus
	}
	opts := store.UpsertOptions{}
	if in.CreatedAt != nil {
		next.CreatedAt = *in.CreatedAt
		opts.OverrideCreatedAt = true
	}
	if in.ControlNumber != nil {
		next.ControlNumber = strings.TrimSpace(*in.ControlNumber)
	}

	var (
		saved document.Document
		err   error
	)
	if next.ControlNumber != cn {
		if !document.ValidControlNumber(next.ControlNumber) {
			return document.Document{}, fmt.Errorf("%w: %q", document.ErrInvalidControlNumber, next.ControlNumber)
		}
		saved, err = a.store.Rename(cn, next, opts)
	} else {
		saved, err = a.store.Upsert(next, opts)
	}
	if err != nil {
		return document.Document{}, err
	}
	return saved, a.save()
}

type transition func(d document.Document, act document.Actor, now time.Time) (document.Document, error)

// apply runs one workflow step against cn: authorize, transition, upsert.
// It does not save so bulk callers can save once.
func (a *App) apply(cn string, act document.Actor, step transition) (document.Document, error) {
	cur, ok := a.store.Get(cn)
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrNotFound, cn)
	}
	next, err := step(cur, act, a.now())
	if err != nil {
		return cur, err
	}
	return a.store.Upsert(next, store.UpsertOptions{KeepUpdatedAt: true})
}

func (a *App) run(ctx context.Context, action document.Action, cn string, step transition) (document.Document, error) {
	act, err := a.authorize(ctx, action, nil)
	if err != nil {
		return document.Document{}, err
	}
	saved, err := a.apply(cn, act, step)
	if err != nil {
		return saved, err
	}
	return saved, a.save()
}

func (a *App) SetStatus(ctx context.Context, cn string, s document.Status) (document.Document, error) {
	return a.run(ctx, document.ActionSetStatus, cn, func(d document.Document, act document.Actor, now time.Time) (document.Document, error) {
		return document.SetStatus(d, act, s, now)
	})
}

func (a *App) SetWinsStatus(ctx context.Context, cn string, s document.WinsStatus) (document.Document, error) {
	return a.run(ctx, document.ActionSetWins, cn, func(d document.Document, act document.Actor, now time.Time) (document.Document, error) {
		return document.SetWinsStatus(d, act, s, now)
	})
}

func (a *App) EditNotes(ctx context.Context, cn, notes string) (document.Document, error) {
	return a.run(ctx, document.ActionEditNotes, cn, func(d document.Document, act document.Actor, now time.Time) (document.Document, error) {
		return document.EditNotes(d, act, notes, now)
	})
}

func (a *App) Forward(ctx context.Context, cn string) (document.Document, error) {
	return a.run(ctx, document.ActionForward, cn, document.Forward)
}

func (a *App) Receive(ctx context.Context, cn string) (document.Document, error) {
	return a.run(ctx, document.ActionReceive, cn, document.Receive)
}

func (a *App) Return(ctx context.Context, cn, reason string) (document.Document, error) {
	return a.run(ctx, document.ActionReturn, cn, func(d document.Document, act document.Actor, now time.Time) (document.Document, error) {
		return document.Return(d, act, reason, now)
	})
}

// Delete moves cn to the archive.
func (a *App) Delete(ctx context.Context, cn string) error {
	cur, ok := a.store.Get(cn)
	if _, err := a.authorize(ctx, document.ActionDelete, docOrNil(cur, ok)); err != nil {
		return err
	}
	if _, err := a.store.SoftDelete(cn); err != nil {
		return err
	}
	return a.save()
}

// Restore brings an archived record back unchanged.
func (a *App) Restore(ctx context.Context, cn string) error {
	if _, err := a.authorize(ctx, document.ActionRestore, nil); err != nil {
		return err
	}
	ok, err := a.store.Restore(cn)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not archived", document.ErrNotFound, cn)
	}
	return a.save()
}

// Purge removes an archived record for good.
func (a *App) Purge(ctx context.Context, cn string) error {
	if _, err := a.authorize(ctx, document.ActionPurge, nil); err != nil {
		return err
	}
	if !a.store.Purge(cn) {
		return fmt.Errorf("%w: %s is not archived", document.ErrNotFound, cn)
	}
	return a.save()
}

func (a *App) Get(ctx context.Context, cn string) (document.Document, error) {
	if _, err := a.actor(ctx); err != nil {
		return document.Document{}, err
	}
	d, ok := a.store.Get(cn)
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrNotFound, cn)
	}
	return d, nil
}

// RemoteGet reads one document from the server instead of the local mirror.
func (a *App) RemoteGet(ctx context.Context, cn string) (document.Document, error) {
	if _, err := a.actor(ctx); err != nil {
		return document.Document{}, err
	}
	if a.remote == nil {
		return document.Document{}, ErrNoServer
	}
	d, err := a.remote.GetDocument(ctx, cn)
	if err != nil {
		return document.Document{}, fmt.Errorf("fetch %s: %w", cn, err)
	}
	if d == nil {
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrNotFound, cn)
	}
	return *d, nil
}

func (a *App) List(ctx context.Context, f Filter) ([]document.Document, error) {
	if _, err := a.actor(ctx); err != nil {
		return nil, err
	}
	return a.filter(f), nil
}

// Snapshot is List for redraws the user did not ask for, such as a sync
// pull landing. It leaves the inactivity clock alone.
func (a *App) Snapshot(ctx context.Context, f Filter) ([]document.Document, error) {
	if _, err := a.signedIn(ctx); err != nil {
		return nil, err
	}
	return a.filter(f), nil
}

func (a *App) filter(f Filter) []document.Document {
	all := a.store.List()
	out := make([]document.Document, 0, len(all))
	for _, d := range all {
		if f.match(d) {
			out = append(out, d)
		}
	}
	return out
}

func (a *App) Archive(ctx context.Context) ([]document.Document, error) {
	if _, err := a.actor(ctx); err != nil {
		return nil, err
	}
	return a.store.Archive(), nil
}

func docOrNil(d document.Document, ok bool) *document.Document {
	if !ok {
		return nil
	}
	return &d
}
