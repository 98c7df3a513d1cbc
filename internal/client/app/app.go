// Package app is the client's application context: it owns the document
// store, the session and the syncer for one signed-in session and is the
// only place documents are mutated.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"doctrack/internal/client/local"
	"doctrack/internal/client/remote"
	"doctrack/internal/client/session"
	"doctrack/internal/client/store"
	"doctrack/internal/client/syncer"
	"doctrack/internal/config"
	"doctrack/internal/domain/document"
	"doctrack/internal/domain/user"
)

const StateFile = "state.json"

var ErrNoServer = errors.New("no server configured (set DOCTRACK_SERVER)")

type Deps struct {
	Store   *store.Store
	Session *session.Manager
	// Syncer nil runs local-only.
	Syncer   *syncer.Syncer
	Remote   *remote.Client
	Now      func() time.Time
	Location *time.Location
	Log      *slog.Logger
}

type App struct {
	store   *store.Store
	session *session.Manager
	syncer  *syncer.Syncer
	remote  *remote.Client
	now     func() time.Time
	loc     *time.Location
	log     *slog.Logger
	syncing bool
}

func New(d Deps) *App {
	a := &App{
		store:   d.Store,
		session: d.Session,
		syncer:  d.Syncer,
		remote:  d.Remote,
		now:     d.Now,
		loc:     d.Location,
		log:     d.Log,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.syncer != nil {
		a.store.SetPusher(a.syncer)
	}
	return a
}

// Open wires the client from configuration and loads the local collections.
func Open(cfg *config.ClientConfig, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	kv, err := local.Open(filepath.Join(cfg.Home, StateFile))
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	st := store.New(kv, store.WithLogger(log))
	if err := st.Load(); err != nil {
		return nil, err
	}
	opts := []session.Option{session.WithTimeout(cfg.InactivityTimeout), session.WithLogger(log)}
	d := Deps{Store: st, Log: log}
	if cfg.Server != "" {
		rc := remote.New(cfg.Server)
		opts = append(opts, session.WithRemote(rc))
		d.Remote = rc
		d.Syncer = syncer.New(rc, st, syncer.Config{
			PollInterval:   cfg.PollInterval,
			ReconnectDelay: cfg.ReconnectDelay,
		}, log)
	}
	d.Session = session.NewManager(kv, opts...)
	return New(d), nil
}

func (a *App) Store() *store.Store       { return a.store }
func (a *App) Session() *session.Manager { return a.session }
func (a *App) Remote() *remote.Client    { return a.remote }
func (a *App) Location() *time.Location  { return a.loc }
func (a *App) Now() time.Time            { return a.now() }

// StartSync begins mirroring to the server. Without one, or when the server
// is down, the session stays local-only and StartSync returns nil.
func (a *App) StartSync(ctx context.Context) error {
	if a.syncer == nil || a.syncing {
		return nil
	}
	if err := a.syncer.Start(ctx); err != nil {
		if errors.Is(err, syncer.ErrOffline) {
			return nil
		}
		return err
	}
	a.syncing = true
	return nil
}

func (a *App) Online() bool { return a.syncer != nil && a.syncer.Online() }

// OnPull registers fn to run after every successful pull. It is a no-op
// without a server.
func (a *App) OnPull(fn func(changed bool)) {
	if a.syncer != nil {
		a.syncer.OnPull(fn)
	}
}

// Close stops syncing and waits for pushes still in flight.
func (a *App) Close() {
	if a.syncer != nil {
		a.syncer.Stop()
	}
	a.syncing = false
}

// SignOut ends the session and tears the sync loops down.
func (a *App) SignOut(ctx context.Context) {
	a.Close()
	a.session.Logout(ctx)
}

// signedIn returns the live session, ending it first when it has been idle
// past the timeout. It does not count as activity.
func (a *App) signedIn(ctx context.Context) (*session.Session, error) {
	cur, err := a.session.Current()
	if err != nil {
		return nil, err
	}
	if a.session.Expired(a.now()) {
		a.SignOut(ctx)
		return nil, session.ErrExpired
	}
	return cur, nil
}

// actor is the gate every user-issued operation passes first: it ends an
// idle session, records activity and resolves who is acting.
func (a *App) actor(ctx context.Context) (document.Actor, error) {
	cur, err := a.signedIn(ctx)
	if err != nil {
		return document.Actor{}, err
	}
	if err := a.session.Touch(); err != nil {
		return document.Actor{}, err
	}
	role, err := a.session.Role()
	if err != nil {
		return document.Actor{}, err
	}
	return document.Actor{Username: cur.Username, Role: role}, nil
}

func (a *App) authorize(ctx context.Context, action document.Action, doc *document.Document) (document.Actor, error) {
	act, err := a.actor(ctx)
	if err != nil {
		return act, err
	}
	if err := document.Authorize(act.Role, action, doc); err != nil {
		return act, err
	}
	return act, nil
}

// IsAdmin reports the current role; it is false when signed out.
func (a *App) IsAdmin() bool {
	r, err := a.session.Role()
	return err == nil && r == user.RoleAdmin
}

func (a *App) save() error {
	if err := a.store.Save(); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	return nil
}
