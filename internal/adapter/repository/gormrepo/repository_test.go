package gormrepo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"doctrack/internal/domain/document"
	"doctrack/internal/domain/uow"
	"doctrack/internal/domain/user"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB uses a file under t.TempDir so every pooled connection sees
// the same schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&document.Document{}, &user.User{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeDoc(cn, title string) document.Document {
	return document.Document{
		ControlNumber: cn,
		Title:         title,
		Status:        document.StatusRevision,
		WinsStatus:    document.WinsPending,
		CreatedAt:     1700000000000,
		UpdatedAt:     1700000000000,
	}
}

func TestDocument_ReplaceAllKeepsOrder(t *testing.T) {
	repo := NewDocumentRepository(openTestDB(t))
	ctx := context.Background()

	first := []document.Document{makeDoc("ECOM-2025-0003", "C"), makeDoc("ECOM-2025-0001", "A")}
	if err := repo.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	second := []document.Document{makeDoc("ECOM-2025-0002", "B"), makeDoc("ECOM-2025-0001", "A2")}
	if err := repo.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(got), got)
	}
	if got[0].ControlNumber != "ECOM-2025-0002" || got[1].Title != "A2" {
		t.Fatalf("unexpected order/content: %+v", got)
	}
	if got[1].CreatedAt != 1700000000000 {
		t.Fatalf("createdAt rewritten: %d", got[1].CreatedAt)
	}
}

func TestDocument_ReplaceAllEmpty(t *testing.T) {
	repo := NewDocumentRepository(openTestDB(t))
	ctx := context.Background()
	if err := repo.ReplaceAll(ctx, []document.Document{makeDoc("ECOM-2025-0001", "A")}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err := repo.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("ReplaceAll(nil): %v", err)
	}
	got, _ := repo.List(ctx)
	if len(got) != 0 {
		t.Fatalf("expected empty, got %+v", got)
	}
}

func TestDocument_GetAndSave(t *testing.T) {
	repo := NewDocumentRepository(openTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByControlNumber(ctx, "ECOM-2025-0404"); !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := repo.ReplaceAll(ctx, []document.Document{makeDoc("ECOM-2025-0001", "A")}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	d, err := repo.GetByControlNumber(ctx, "ECOM-2025-0001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	d.Forwarded = true
	d.ForwardedBy = "alice"
	if err := repo.Save(ctx, d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, _ := repo.GetByControlNumber(ctx, "ECOM-2025-0001")
	if !again.Forwarded || again.ForwardedBy != "alice" {
		t.Fatalf("save not persisted: %+v", again)
	}
}

func TestUser_CRUD(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	for _, u := range []user.User{
		{ID: "u1", Username: "admin", PasswordHash: "x", Role: user.RoleAdmin},
		{ID: "u2", Username: "alice", PasswordHash: "x", Role: user.RoleUser},
	} {
		u := u
		if err := repo.Create(ctx, &u); err != nil {
			t.Fatalf("Create %s: %v", u.Username, err)
		}
	}
	if n, _ := repo.CountByRole(ctx, user.RoleAdmin); n != 1 {
		t.Fatalf("admins = %d, want 1", n)
	}
	alice, err := repo.GetByUsername(ctx, "alice")
	if err != nil || alice.ID != "u2" {
		t.Fatalf("GetByUsername: %+v %v", alice, err)
	}
	alice.Role = user.RoleAdmin
	if err := repo.Save(ctx, alice); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n, _ := repo.CountByRole(ctx, user.RoleAdmin); n != 2 {
		t.Fatalf("admins = %d, want 2", n)
	}
	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "alice"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	list, _ := repo.List(ctx)
	if len(list) != 1 || list[0].Username != "admin" {
		t.Fatalf("List: %+v", list)
	}
}

func TestUoW_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	u := NewGormUoW(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := u.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Users.Create(ctx, &user.User{ID: "u9", Username: "temp", PasswordHash: "x", Role: user.RoleUser}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := NewUserRepository(db).GetByUsername(ctx, "temp"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("row survived rollback: %v", err)
	}
}

func TestUoW_WithinDocumentTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := NewDocumentRepository(db).ReplaceAll(ctx, []document.Document{makeDoc("ECOM-2025-0001", "A")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	u := NewGormUoW(db)

	err := u.WithinDocumentTx(ctx, "ECOM-2025-0001", func(r uow.Repos, d *document.Document) error {
		d.Notes = "locked edit"
		return r.Documents.Save(ctx, d)
	})
	if err != nil {
		t.Fatalf("WithinDocumentTx: %v", err)
	}
	got, _ := NewDocumentRepository(db).GetByControlNumber(ctx, "ECOM-2025-0001")
	if got.Notes != "locked edit" {
		t.Fatalf("notes = %q", got.Notes)
	}

	err = u.WithinDocumentTx(ctx, "ECOM-2025-0999", func(r uow.Repos, d *document.Document) error { return nil })
	if !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("missing doc: %v", err)
	}
}
