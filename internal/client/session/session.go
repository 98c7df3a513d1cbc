// Package session signs users in and out of the client, persists who is
// signed in, and enforces the inactivity timeout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"doctrack/internal/client/remote"
	"doctrack/internal/domain/user"
	"doctrack/pkg/id"
)

const (
	KeySession      = "session"
	KeyLastActivity = "last_activity"
	KeyUsers        = "users"

	DefaultInactivityTimeout = 60 * time.Minute
)

var (
	ErrNotSignedIn        = errors.New("not signed in")
	ErrExpired            = errors.New("session expired after inactivity")
	ErrMissingCredentials = errors.New("username and password are required")
)

// seedUsers are available on a fresh install with no registry yet.
var seedUsers = []struct {
	username, password string
	role               user.Role
}{
	{"admin", "password", user.RoleAdmin},
	{"user", "password", user.RoleUser},
}

// Session is what survives a restart of the client.
type Session struct {
	Username   string    `json:"username"`
	Role       user.Role `json:"role"`
	Token      string    `json:"token,omitempty"`
	SignedInAt int64     `json:"signedInAt"`
}

func (s *Session) IsAdmin() bool { return s != nil && s.Role == user.RoleAdmin }

type Container interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	Delete(keys ...string) error
}

// Authenticator is the remote side of sign-in. *remote.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (remote.LoginResult, error)
	Register(ctx context.Context, username, password string, role user.Role) (remote.RegisterResult, error)
	Logout(ctx context.Context) error
	SetToken(token string)
}

type Manager struct {
	kv      Container
	remote  Authenticator
	timeout time.Duration
	cost    int
	now     func() time.Time
	log     *slog.Logger

	mu  sync.Mutex
	cur *Session
}

type Option func(*Manager)

// WithRemote authenticates against the server instead of the local registry.
func WithRemote(a Authenticator) Option     { return func(m *Manager) { m.remote = a } }
func WithTimeout(d time.Duration) Option    { return func(m *Manager) { m.timeout = d } }
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }
func WithLogger(l *slog.Logger) Option      { return func(m *Manager) { m.log = l } }
func WithBcryptCost(cost int) Option        { return func(m *Manager) { m.cost = cost } }

func NewManager(kv Container, opts ...Option) *Manager {
	m := &Manager{
		kv:      kv,
		timeout: DefaultInactivityTimeout,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Timeout() time.Duration { return m.timeout }

// Resume picks up the persisted session. An idle one is signed out and
// ErrExpired returned.
func (m *Manager) Resume(ctx context.Context) (*Session, error) {
	var s Session
	ok, err := m.kv.Get(KeySession, &s)
	if err != nil {
		m.log.Warn("session: persisted session unreadable, clearing", "err", err)
		_ = m.kv.Delete(KeySession, KeyLastActivity)
		return nil, ErrNotSignedIn
	}
	if !ok || s.Username == "" {
		return nil, ErrNotSignedIn
	}
	m.mu.Lock()
	m.cur = &s
	m.mu.Unlock()
	if m.remote != nil {
		m.remote.SetToken(s.Token)
	}
	if m.Expired(m.now()) {
		m.Logout(ctx)
		return nil, ErrExpired
	}
	return &s, nil
}

// Login checks the credentials and persists the session.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	var (
		role  user.Role
		token string
	)
	switch res, err := m.remoteLogin(ctx, username, password); {
	case err == nil && res != nil:
		role, token = user.ParseRole(string(res.Role)), res.Token
	case err != nil:
		return nil, err
	default:
		r, err := m.localLogin(username, password)
		if err != nil {
			return nil, err
		}
		role = r
	}

	s := &Session{Username: username, Role: role, Token: token, SignedInAt: m.now().UnixMilli()}
	if err := m.kv.Set(KeySession, s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	if err := m.Touch(); err != nil {
		return nil, err
	}
	return s, nil
}

// remoteLogin returns (nil, nil) when there is no server to ask or it could
// not be reached, which sends the caller to the local registry.
func (m *Manager) remoteLogin(ctx context.Context, username, password string) (*remote.LoginResult, error) {
	if m.remote == nil {
		return nil, nil
	}
	res, err := m.remote.Login(ctx, username, password)
	if err == nil {
		return &res, nil
	}
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		m.log.Warn("session: server unreachable, using local accounts", "err", err)
		return nil, nil
	}
	if errors.Is(err, remote.ErrUnauthorized) {
		return nil, user.ErrInvalidCredentials
	}
	return nil, err
}

// Register creates an account. A second admin needs an admin session.
func (m *Manager) Register(ctx context.Context, username, password string, role user.Role) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	if !role.Valid() {
		role = user.ParseRole(string(role))
	}
	if m.remote != nil {
		if _, err := m.remote.Register(ctx, username, password, role); err != nil {
			return err
		}
		return nil
	}
	return m.localRegister(username, password, role)
}

// Current returns the signed-in session.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, ErrNotSignedIn
	}
	cp := *m.cur
	return &cp, nil
}

// Role re-reads the persisted session on every call. Admin in either the
// cached or the persisted copy wins.
func (m *Manager) Role() (user.Role, error) {
	m.mu.Lock()
	cur := m.cur
	m.mu.Unlock()
	if cur == nil {
		return "", ErrNotSignedIn
	}
	var persisted Session
	if ok, err := m.kv.Get(KeySession, &persisted); err == nil && ok &&
		persisted.Username == cur.Username && persisted.Role == user.RoleAdmin {
		return user.RoleAdmin, nil
	}
	return cur.Role, nil
}

// Logout forgets the session locally and revokes the token server side on a
// best-effort basis.
func (m *Manager) Logout(ctx context.Context) {
	if m.remote != nil {
		if err := m.remote.Logout(ctx); err != nil {
			m.log.Warn("session: remote logout failed", "err", err)
		}
	}
	if err := m.kv.Delete(KeySession, KeyLastActivity); err != nil {
		m.log.Warn("session: clear persisted session failed", "err", err)
	}
	m.mu.Lock()
	m.cur = nil
	m.mu.Unlock()
}

// Touch records activity now.
func (m *Manager) Touch() error {
	if err := m.kv.Set(KeyLastActivity, m.now().UnixMilli()); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (m *Manager) lastActivity() time.Time {
	var ms int64
	if ok, err := m.kv.Get(KeyLastActivity, &ms); err == nil && ok && ms > 0 {
		return time.UnixMilli(ms)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil && m.cur.SignedInAt > 0 {
		return time.UnixMilli(m.cur.SignedInAt)
	}
	return time.Time{}
}

// Expired reports whether more than the inactivity timeout has passed since
// the last recorded activity.
func (m *Manager) Expired(now time.Time) bool {
	last := m.lastActivity()
	if last.IsZero() {
		return false
	}
	return now.Sub(last) > m.timeout
}

// Remaining is the time left before the inactivity timeout fires.
func (m *Manager) Remaining(now time.Time) time.Duration {
	last := m.lastActivity()
	if last.IsZero() {
		return m.timeout
	}
	if d := last.Add(m.timeout).Sub(now); d > 0 {
		return d
	}
	return 0
}

// Watch signs the session out once it has been idle for the timeout and
// then calls onExpire. It returns when that happens or ctx ends.
func (m *Manager) Watch(ctx context.Context, onExpire func()) {
	t := time.NewTimer(m.Remaining(m.now()))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if _, err := m.Current(); err != nil {
			return
		}
		if m.Expired(m.now()) {
			m.log.Info("session: signed out after inactivity", "timeout", m.timeout)
			m.Logout(ctx)
			if onExpire != nil {
				onExpire()
			}
			return
		}
		// Activity moved the deadline; the extra millisecond lands past it.
		t.Reset(m.Remaining(m.now()) + time.Millisecond)
	}
}

type localUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         user.Role `json:"role"`
	CreatedAt    int64     `json:"createdAt"`
}

// registry loads the local accounts, seeding them on first use.
func (m *Manager) registry() ([]localUser, error) {
	var users []localUser
	ok, err := m.kv.Get(KeyUsers, &users)
	if err != nil {
		return nil, fmt.Errorf("read local accounts: %w", err)
	}
	if ok && len(users) > 0 {
		return users, nil
	}
	now := m.now().UnixMilli()
	for _, s := range seedUsers {
		h, err := bcrypt.GenerateFromPassword([]byte(s.password), m.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		users = append(users, localUser{ID: id.NewID32(), Username: s.username, PasswordHash: string(h), Role: s.role, CreatedAt: now})
	}
	if err := m.kv.Set(KeyUsers, users); err != nil {
		return nil, fmt.Errorf("seed local accounts: %w", err)
	}
	return users, nil
}

func (m *Manager) localLogin(username, password string) (user.Role, error) {
	users, err := m.registry()
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return "", user.ErrInvalidCredentials
		}
		return u.Role, nil
	}
	return "", user.ErrInvalidCredentials
}

func (m *Manager) localRegister(username, password string, role user.Role) error {
	users, err := m.registry()
	if err != nil {
		return err
	}
	hasAdmin := false
	for _, u := range users {
		if u.Username == username {
			return user.ErrExists
		}
		if u.Role == user.RoleAdmin {
			hasAdmin = true
		}
	}
	if role == user.RoleAdmin && hasAdmin {
		if r, err := m.Role(); err != nil || r != user.RoleAdmin {
			return user.ErrAdminRequired
		}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	users = append(users, localUser{
		ID:           id.NewID32(),
		Username:     username,
		PasswordHash: string(h),
		Role:         role,
		CreatedAt:    m.now().UnixMilli(),
	})
	if err := m.kv.Set(KeyUsers, users); err != nil {
		return fmt.Errorf("save local accounts: %w", err)
	}
	return nil
}
