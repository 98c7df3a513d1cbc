package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"doctrack/internal/adapter/middleware"
	"doctrack/internal/adapter/notify"
	"doctrack/internal/adapter/repository/jsonfile"
	"doctrack/internal/domain/document"
	"doctrack/internal/usecase/auth"
	docuc "doctrack/internal/usecase/document"
)

type testServer struct {
	e   *echo.Echo
	hub *notify.Hub
}

func newTestServer(t *testing.T, mutate func(d *Deps)) *testServer {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	hub := notify.NewHub()
	authUC := auth.NewUsecase(store.Users(), store, auth.NewTokenIssuer("test", time.Hour), nil).WithBcryptCost(bcrypt.MinCost)
	if err := authUC.EnsureSeedUsers(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d := Deps{
		Documents: docuc.NewUsecase(store.Documents(), store, hub),
		Auth:      authUC,
		Hub:       hub,
		IdempTTL:  time.Minute,
	}
	if mutate != nil {
		mutate(&d)
	}
	return &testServer{e: NewServer(d), hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": "password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var res auth.LoginResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	return res.Token
}

func mkDoc(cn string) document.Document {
	return document.Document{ControlNumber: cn, Title: "T", Status: document.StatusRevision, WinsStatus: document.WinsPending, CreatedAt: 1700000000000, UpdatedAt: 1700000000000}
}

func decodeDocs(t *testing.T, rec *httptest.ResponseRecorder) []document.Document {
	t.Helper()
	var out struct {
		Docs []document.Document `json:"docs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode docs: %v (%s)", err, rec.Body.String())
	}
	return out.Docs
}

func TestServer_DocumentsReplaceAllLastWriterWins(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(t, http.MethodGet, "/documents", "", nil); rec.Code != http.StatusOK || len(decodeDocs(t, rec)) != 0 {
		t.Fatalf("empty list: %d %s", rec.Code, rec.Body.String())
	}

	a, b, c, d := mkDoc("ECOM-2025-0001"), mkDoc("ECOM-2025-0002"), mkDoc("ECOM-2025-0003"), mkDoc("ECOM-2025-0004")
	if rec := s.do(t, http.MethodPost, "/documents", "", map[string]any{"docs": []document.Document{a, b, c}}); rec.Code != http.StatusOK {
		t.Fatalf("push 1: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/documents", "", map[string]any{"docs": []document.Document{a, b, d}}); rec.Code != http.StatusOK {
		t.Fatalf("push 2: %d %s", rec.Code, rec.Body.String())
	}

	got := decodeDocs(t, s.do(t, http.MethodGet, "/documents", "", nil))
	var cns []string
	for _, doc := range got {
		cns = append(cns, doc.ControlNumber)
	}
	if strings.Join(cns, ",") != "ECOM-2025-0001,ECOM-2025-0002,ECOM-2025-0004" {
		t.Fatalf("remote = %v", cns)
	}
}

func TestServer_DocumentsBadBodies(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodPost, "/documents", "", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing docs => want 400, got %d", rec.Code)
	}
	dup := []document.Document{mkDoc("ECOM-2025-0001"), mkDoc("ECOM-2025-0001")}
	if rec := s.do(t, http.MethodPost, "/documents", "", map[string]any{"docs": dup}); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate keys => want 400, got %d", rec.Code)
	}
}

func TestServer_GetAndPatchDocument(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/documents", "", map[string]any{"docs": []document.Document{mkDoc("ECOM-2025-0001")}})

	if rec := s.do(t, http.MethodGet, "/documents/ECOM-2025-0009", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing => want 404, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodPut, "/documents/ECOM-2025-0001", "", map[string]any{"notes": "n1", "status": "Approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, "/documents/ECOM-2025-0001", "", nil)
	var out struct {
		Doc document.Document `json:"doc"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Doc.Notes != "n1" || out.Doc.Status != document.StatusApproved || out.Doc.Title != "T" {
		t.Fatalf("merged doc = %+v", out.Doc)
	}
	if rec := s.do(t, http.MethodPut, "/documents/ECOM-2025-0001", "", map[string]any{"status": "Lost"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status => want 400, got %d", rec.Code)
	}
}

func TestServer_MalformedControlNumbers(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/documents", "", map[string]any{"docs": []document.Document{mkDoc("ECOM-2025-0001")}})

	for _, key := range []string{"ECOM-25-1", "ecom-2025-0001", "DOC-2025-0001"} {
		rec := s.do(t, http.MethodGet, "/documents/"+key, "", nil)
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ECOM-YYYY-NNNN") {
			t.Fatalf("GET %s => want 400 with format message, got %d %s", key, rec.Code, rec.Body.String())
		}
		if rec := s.do(t, http.MethodPut, "/documents/"+key, "", map[string]any{"notes": "x"}); rec.Code != http.StatusBadRequest {
			t.Fatalf("PUT %s => want 400, got %d", key, rec.Code)
		}
	}

	bad := []document.Document{mkDoc("ECOM-2025-0002"), mkDoc("ECOM-2025-2")}
	if rec := s.do(t, http.MethodPost, "/documents", "", map[string]any{"docs": bad}); rec.Code != http.StatusBadRequest {
		t.Fatalf("push with malformed key => want 400, got %d", rec.Code)
	}
	got := decodeDocs(t, s.do(t, http.MethodGet, "/documents", "", nil))
	if len(got) != 1 || got[0].ControlNumber != "ECOM-2025-0001" {
		t.Fatalf("rejected push must leave the collection alone, got %+v", got)
	}
}

func TestServer_AuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "nope"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password => want 401, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password => want 400, got %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "alice", "password": "pw"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"role":"user"`) {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "alice", "password": "pw"}); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate => want 409, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "eve", "password": "pw", "role": "admin"}); rec.Code != http.StatusForbidden {
		t.Fatalf("second admin anonymous => want 403, got %d", rec.Code)
	}
	adminTok := s.login(t, "admin")
	if rec := s.do(t, http.MethodPost, "/auth/register", adminTok, map[string]string{"username": "bob", "password": "pw", "role": "admin"}); rec.Code != http.StatusOK {
		t.Fatalf("second admin with admin token: %d %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(t, http.MethodPost, "/auth/logout", adminTok, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/users", adminTok, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token => want 401, got %d", rec.Code)
	}
}

func TestServer_UserManagement(t *testing.T) {
	s := newTestServer(t, nil)
	adminTok := s.login(t, "admin")
	userTok := s.login(t, "user")

	if rec := s.do(t, http.MethodGet, "/users", userTok, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin list => want 403, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodGet, "/users", adminTok, nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "passwordHash") {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPut, "/users/admin", adminTok, map[string]string{"role": "user"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("demote last admin => want 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/users/admin", adminTok, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete last admin => want 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, "/users/user", adminTok, map[string]string{"role": "admin"}); rec.Code != http.StatusOK {
		t.Fatalf("promote: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodDelete, "/users/ghost", adminTok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing => want 404, got %d", rec.Code)
	}
}

func TestServer_DocsRequireAuth(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.DocsRequireAuth = true })
	body := map[string]any{"docs": []document.Document{}}
	if rec := s.do(t, http.MethodPost, "/documents", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous push => want 401, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/documents", s.login(t, "user"), body); rec.Code != http.StatusOK {
		t.Fatalf("authenticated push: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/documents", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("reads stay open: %d", rec.Code)
	}
}

func TestServer_IdempotentPushReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := newTestServer(t, func(d *Deps) { d.Redis = rdb })

	raw, _ := json.Marshal(map[string]any{"docs": []document.Document{mkDoc("ECOM-2025-0001")}})
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(raw))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("Ax-Request-Id", "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88")
		req.Header.Set("Ax-Request-At", time.Now().UTC().Format(time.RFC3339))
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}
	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first push: %d %s", rec.Code, rec.Body.String())
	}
	rec := send()
	if rec.Code != http.StatusOK || rec.Header().Get(middleware.HeaderReplayed) != "true" {
		t.Fatalf("retry should replay: %d %v", rec.Code, rec.Header())
	}
}

func TestServer_PushNotifiesSubscribers(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.e)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	raw, _ := json.Marshal(map[string]any{"docs": []document.Document{mkDoc("ECOM-2025-0001")}})
	resp, err := http.Post(srv.URL+"/documents", echo.MIMEApplicationJSON, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"type":"docs_updated"}` {
		t.Fatalf("message = %s", msg)
	}
}
