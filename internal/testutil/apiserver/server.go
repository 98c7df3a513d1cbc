// Package apiserver runs the real document server on a loopback listener
// for client-side tests.
package apiserver

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	httpadp "doctrack/internal/adapter/http"
	"doctrack/internal/adapter/notify"
	"doctrack/internal/adapter/repository/jsonfile"
	"doctrack/internal/usecase/auth"
	docuc "doctrack/internal/usecase/document"
)

type Server struct {
	*httptest.Server
	Store *jsonfile.Store
	Hub   *notify.Hub
}

// Start serves a fresh JSON-file backed instance with the seeded users and
// closes it when the test ends.
func Start(t *testing.T, mutate ...func(d *httpadp.Deps)) *Server {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	hub := notify.NewHub()
	authUC := auth.NewUsecase(store.Users(), store, auth.NewTokenIssuer("test-secret", time.Hour), nil).
		WithBcryptCost(bcrypt.MinCost)
	if err := authUC.EnsureSeedUsers(context.Background()); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	d := httpadp.Deps{
		Documents: docuc.NewUsecase(store.Documents(), store, hub),
		Auth:      authUC,
		Hub:       hub,
		IdempTTL:  time.Minute,
	}
	for _, m := range mutate {
		m(&d)
	}
	srv := httptest.NewServer(httpadp.NewServer(d))
	t.Cleanup(func() {
		_ = hub.Shutdown(context.Background())
		srv.Close()
	})
	return &Server{Server: srv, Store: store, Hub: hub}
}
