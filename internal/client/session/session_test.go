package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"doctrack/internal/client/local"
	"doctrack/internal/client/remote"
	"doctrack/internal/domain/user"
	"doctrack/internal/testutil/apiserver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(t *testing.T, opts ...Option) (*Manager, *local.Container, *clock) {
	t.Helper()
	kv, err := local.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	clk := &clock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	base := []Option{WithClock(clk.now), WithBcryptCost(bcrypt.MinCost)}
	return NewManager(kv, append(base, opts...)...), kv, clk
}

func TestLocalLoginSeededUsers(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	s, err := m.Login(ctx, "admin", "password")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, s.Role)
	assert.True(t, s.IsAdmin())

	s, err = m.Login(ctx, " user ", "password")
	require.NoError(t, err)
	assert.Equal(t, "user", s.Username)
	assert.Equal(t, user.RoleUser, s.Role)

	_, err = m.Login(ctx, "admin", "nope")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	_, err = m.Login(ctx, "ghost", "password")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	_, err = m.Login(ctx, "", "password")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLocalRegister(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "pw", user.RoleUser))
	assert.ErrorIs(t, m.Register(ctx, "alice", "pw", user.RoleUser), user.ErrExists)

	s, err := m.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, s.Role)

	assert.ErrorIs(t, m.Register(ctx, "mallory", "pw", user.RoleAdmin), user.ErrAdminRequired)

	_, err = m.Login(ctx, "admin", "password")
	require.NoError(t, err)
	require.NoError(t, m.Register(ctx, "root2", "pw", user.RoleAdmin))
	s, err = m.Login(ctx, "root2", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, s.Role)
}

func TestResumeAcrossRestarts(t *testing.T) {
	m, kv, clk := newManager(t)
	ctx := context.Background()
	_, err := m.Login(ctx, "user", "password")
	require.NoError(t, err)

	again := NewManager(kv, WithClock(clk.now))
	s, err := again.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user", s.Username)

	cur, err := again.Current()
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, cur.Role)
}

func TestResumeExpired(t *testing.T) {
	m, kv, clk := newManager(t)
	ctx := context.Background()
	_, err := m.Login(ctx, "user", "password")
	require.NoError(t, err)

	clk.t = clk.t.Add(61 * time.Minute)
	again := NewManager(kv, WithClock(clk.now))
	_, err = again.Resume(ctx)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = again.Current()
	assert.ErrorIs(t, err, ErrNotSignedIn)
	ok, err := kv.Get(KeySession, &Session{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResumeNothingPersisted(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Resume(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestTouchMovesDeadline(t *testing.T) {
	m, _, clk := newManager(t)
	_, err := m.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	clk.t = clk.t.Add(50 * time.Minute)
	assert.False(t, m.Expired(clk.t))
	require.NoError(t, m.Touch())

	clk.t = clk.t.Add(50 * time.Minute)
	assert.False(t, m.Expired(clk.t))
	assert.Equal(t, 10*time.Minute, m.Remaining(clk.t))

	clk.t = clk.t.Add(11 * time.Minute)
	assert.True(t, m.Expired(clk.t))
	assert.Zero(t, m.Remaining(clk.t))
}

func TestRolePersistedAdminWins(t *testing.T) {
	m, kv, _ := newManager(t)
	_, err := m.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	r, err := m.Role()
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, r)

	var s Session
	_, err = kv.Get(KeySession, &s)
	require.NoError(t, err)
	s.Role = user.RoleAdmin
	require.NoError(t, kv.Set(KeySession, s))

	r, err = m.Role()
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, r)
}

func TestRoleSignedOut(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Role()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestWatchSignsOutWhenIdle(t *testing.T) {
	kv, err := local.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	m := NewManager(kv, WithTimeout(50*time.Millisecond), WithBcryptCost(bcrypt.MinCost))
	_, err = m.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	expired := make(chan struct{})
	go m.Watch(context.Background(), func() { close(expired) })

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("watch never fired")
	}
	_, err = m.Current()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestWatchStopsWithContext(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { m.Watch(ctx, nil); close(done) }()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return")
	}
	_, err = m.Current()
	assert.NoError(t, err)
}

func TestRemoteLogin(t *testing.T) {
	srv := apiserver.Start(t)
	rc := remote.New(srv.URL)
	m, _, _ := newManager(t, WithRemote(rc))
	ctx := context.Background()

	s, err := m.Login(ctx, "admin", "password")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, s.Role)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, s.Token, rc.Token())

	require.NoError(t, m.Register(ctx, "dana", "pw", user.RoleAdmin))
	assert.ErrorIs(t, m.Register(ctx, "dana", "pw", user.RoleUser), user.ErrExists)

	_, err = m.Login(ctx, "admin", "bad")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	m.Logout(ctx)
	assert.Empty(t, rc.Token())
	_, err = m.Current()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestRemoteUnreachableFallsBackToLocal(t *testing.T) {
	srv := apiserver.Start(t)
	url := srv.URL
	srv.Close()

	m, _, _ := newManager(t, WithRemote(remote.New(url)))
	s, err := m.Login(context.Background(), "user", "password")
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, s.Role)
	assert.Empty(t, s.Token)
}
